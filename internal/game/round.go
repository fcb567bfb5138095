// internal/game/round.go
package game

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jamsesh/jamsesh/internal/models"
)

// RoundPhase is the round's position in its own lifecycle.
type RoundPhase string

const (
	RoundPlaying RoundPhase = "playing"
	RoundReveal  RoundPhase = "reveal"
)

// GuessRecord is one player's answer in a round.
type GuessRecord struct {
	Guess   string
	Correct bool
	Elapsed float64
	Score   int
}

// RoundState holds the active round. It is archived into RoundHistory when
// the round ends and never mutated afterwards.
type RoundState struct {
	RoundNumber int
	Song        *models.Song
	StartedAt   time.Time
	Phase       RoundPhase
	Guesses     map[uuid.UUID]*GuessRecord
	GridOptions []string
}

// RoundResult is the reveal summary produced by EndRoundUnsafe.
type RoundResult struct {
	RoundNumber int
	Song        models.Song
	Scoreboard  map[uuid.UUID]int
	Guesses     map[uuid.UUID]GuessRecord
	GameOver    bool
}

// GameResults is the final ranking. Players are sorted by cumulative score
// descending; ties keep join order. The first entry is the MVP.
type GameResults struct {
	Players []*models.Player
	MVP     *models.Player
}

// StartRoundUnsafe advances the lobby to the next round: picks a song
// uniformly at random from the unplayed pool, resets per-round player
// state and, for choice-based guess styles, builds the option set. Returns
// nil when the game cannot continue (wrong state, round budget spent, or
// pool exhausted). The random pick, rather than pool order, keeps rounds
// unpredictable and lets the host append songs mid-game without biasing
// early picks.
func (l *Lobby) StartRoundUnsafe() *RoundState {
	if l.State != StatePlaying && l.State != StateRoundEnd {
		return nil
	}
	if len(l.RoundHistory) >= l.Settings.Rounds {
		return nil
	}
	unused := l.unusedSongsUnsafe()
	if len(unused) == 0 {
		return nil
	}
	song := unused[rand.Intn(len(unused))]

	for _, p := range l.Players {
		p.ResetRound()
	}

	rs := &RoundState{
		RoundNumber: len(l.RoundHistory) + 1,
		Song:        song,
		StartedAt:   time.Now(),
		Phase:       RoundPlaying,
		Guesses:     make(map[uuid.UUID]*GuessRecord),
	}
	switch l.Settings.GuessStyle {
	case GuessStyleGrid:
		rs.GridOptions = buildOptions(song, unused, gridDecoyCount)
	case GuessStyleMultipleChoice:
		rs.GridOptions = buildOptions(song, unused, choiceDecoyCount)
	}
	l.State = StatePlaying
	l.CurrentRound = rs
	return rs
}

// buildOptions shuffles the remaining pool, takes up to decoys wrong titles,
// appends the correct one and shuffles again.
func buildOptions(correct *models.Song, pool []*models.Song, decoys int) []string {
	others := make([]*models.Song, 0, len(pool))
	for _, s := range pool {
		if s.ID != correct.ID {
			others = append(others, s)
		}
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})
	if len(others) > decoys {
		others = others[:decoys]
	}
	options := make([]string, 0, len(others)+1)
	for _, s := range others {
		options = append(options, s.Title)
	}
	options = append(options, correct.Title)
	r.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// SubmitGuessUnsafe records a player's answer for the active round, at most
// once per round. It scores the guess, updates the player's cumulative
// score and streak, and reports whether every current player has now
// guessed (the scheduler uses that to end the round early).
func (l *Lobby) SubmitGuessUnsafe(playerID uuid.UUID, guess string) (*GuessRecord, bool, error) {
	rs := l.CurrentRound
	if rs == nil || rs.Phase != RoundPlaying {
		return nil, false, ErrNoActiveRound
	}
	p, ok := l.Players[playerID]
	if !ok {
		return nil, false, ErrNotInLobby
	}
	if p.HasGuessed {
		return nil, false, ErrDuplicateGuess
	}

	elapsed := time.Since(rs.StartedAt).Seconds()
	correct := Matches(guess, rs.Song)
	points := Score(correct, elapsed, float64(l.Settings.TimePerRound), p.Streak, l.Settings.ScoreMultiplierSpeed)

	p.HasGuessed = true
	p.LastGuessCorrect = correct
	p.RoundScore = points
	if correct {
		p.Score += points
		p.Streak++
	} else {
		p.Streak = 0
	}

	rec := &GuessRecord{Guess: guess, Correct: correct, Elapsed: elapsed, Score: points}
	rs.Guesses[playerID] = rec

	all := true
	for _, pl := range l.Players {
		if !pl.HasGuessed {
			all = false
			break
		}
	}
	return rec, all, nil
}

// EndRoundUnsafe closes the active round: marks it revealed, archives it
// into history, and summarizes the reveal. Returns nil when no round is
// active, which makes double termination benign. Sets the lobby state to
// game_over once the round budget is spent.
func (l *Lobby) EndRoundUnsafe() *RoundResult {
	rs := l.CurrentRound
	if rs == nil {
		return nil
	}
	rs.Phase = RoundReveal
	l.RoundHistory = append(l.RoundHistory, rs)
	l.CurrentRound = nil

	scoreboard := make(map[uuid.UUID]int, len(l.Players))
	for id, p := range l.Players {
		scoreboard[id] = p.Score
	}
	guesses := make(map[uuid.UUID]GuessRecord, len(rs.Guesses))
	for id, g := range rs.Guesses {
		guesses[id] = *g
	}

	over := len(l.RoundHistory) >= l.Settings.Rounds
	if over {
		l.State = StateGameOver
	} else {
		l.State = StateRoundEnd
	}
	return &RoundResult{
		RoundNumber: rs.RoundNumber,
		Song:        *rs.Song,
		Scoreboard:  scoreboard,
		Guesses:     guesses,
		GameOver:    over,
	}
}

// FinalResultsUnsafe ranks players by cumulative score, stable on join
// order so ties resolve deterministically.
func (l *Lobby) FinalResultsUnsafe() *GameResults {
	ranked := l.PlayersInOrderUnsafe()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	res := &GameResults{Players: ranked}
	if len(ranked) > 0 {
		res.MVP = ranked[0]
	}
	return res
}
