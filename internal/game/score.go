// internal/game/score.go
package game

// Score converts a guess outcome into points. streak is the player's
// consecutive-correct count before this guess; the caller increments it
// (and adds the points to the cumulative score) only on a correct answer,
// and resets it to zero on a miss.
//
// A correct answer is worth a flat 1000, plus up to 500 for speed when the
// speed bonus is enabled, plus 100 per streak step.
func Score(correct bool, elapsed, timePerRound float64, streak int, speedBonus bool) int {
	if !correct {
		return 0
	}
	points := 1000
	if speedBonus && timePerRound > 0 {
		if bonus := int((1 - elapsed/timePerRound) * 500); bonus > 0 {
			points += bonus
		}
	}
	points += streak * 100
	return points
}
