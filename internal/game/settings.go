// internal/game/settings.go
package game

// Guess styles. Open takes free text; grid and multiple choice present the
// correct title among decoys.
const (
	GuessStyleOpen           = "open"
	GuessStyleGrid           = "grid"
	GuessStyleMultipleChoice = "multiple_choice"
)

// Decoy counts for the choice-based guess styles.
const (
	gridDecoyCount   = 8
	choiceDecoyCount = 3
)

// GameSettings captures the host-configurable game rules. Mutable via
// partial updates while the lobby is waiting; frozen once play starts.
type GameSettings struct {
	Mode                 string  `json:"mode"`
	GuessStyle           string  `json:"guessStyle"`
	Rounds               int     `json:"rounds"`
	TimePerRound         int     `json:"timePerRound"`
	SnippetDuration      float64 `json:"snippetDuration"`
	MaxPlayers           int     `json:"maxPlayers"`
	HintsEnabled         bool    `json:"hintsEnabled"`
	ShowArtist           bool    `json:"showArtist"`
	ScoreMultiplierSpeed bool    `json:"scoreMultiplierSpeed"`
}

// DefaultSettings returns the settings a fresh lobby starts with.
func DefaultSettings() GameSettings {
	return GameSettings{
		Mode:                 "classic",
		GuessStyle:           GuessStyleOpen,
		Rounds:               10,
		TimePerRound:         30,
		SnippetDuration:      15,
		MaxPlayers:           8,
		HintsEnabled:         false,
		ShowArtist:           false,
		ScoreMultiplierSpeed: true,
	}
}

// Update merges a partial settings payload into s, ignoring unknown keys
// and out-of-range values. Numbers arrive as float64 from JSON decoding.
// Returns true if anything actually changed.
func (s *GameSettings) Update(partial map[string]interface{}) bool {
	changed := false
	if v, ok := partial["mode"].(string); ok && v != "" && v != s.Mode {
		s.Mode = v
		changed = true
	}
	if v, ok := partial["guessStyle"].(string); ok && v != s.GuessStyle {
		switch v {
		case GuessStyleOpen, GuessStyleGrid, GuessStyleMultipleChoice:
			s.GuessStyle = v
			changed = true
		}
	}
	if v, ok := partial["rounds"].(float64); ok && int(v) > 0 && int(v) != s.Rounds {
		s.Rounds = int(v)
		changed = true
	}
	if v, ok := partial["timePerRound"].(float64); ok && int(v) > 0 && int(v) != s.TimePerRound {
		s.TimePerRound = int(v)
		changed = true
	}
	if v, ok := partial["snippetDuration"].(float64); ok && v > 0 && v != s.SnippetDuration {
		s.SnippetDuration = v
		changed = true
	}
	if v, ok := partial["maxPlayers"].(float64); ok && int(v) > 0 && int(v) != s.MaxPlayers {
		s.MaxPlayers = int(v)
		changed = true
	}
	if v, ok := partial["hintsEnabled"].(bool); ok && v != s.HintsEnabled {
		s.HintsEnabled = v
		changed = true
	}
	if v, ok := partial["showArtist"].(bool); ok && v != s.ShowArtist {
		s.ShowArtist = v
		changed = true
	}
	if v, ok := partial["scoreMultiplierSpeed"].(bool); ok && v != s.ScoreMultiplierSpeed {
		s.ScoreMultiplierSpeed = v
		changed = true
	}
	return changed
}
