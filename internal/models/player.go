// internal/models/player.go
package models

import "github.com/google/uuid"

// Avatar is the cosmetic identity a player picks when joining. Immutable
// once chosen.
type Avatar struct {
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// Player is one participant in a lobby. ID is stable for the lifetime of
// the player; ConnectionID is the transport session identity and is never
// reused after a disconnect.
type Player struct {
	ID           uuid.UUID `json:"id"`
	ConnectionID string    `json:"-"`
	Name         string    `json:"name"`
	Avatar       Avatar    `json:"avatar"`

	Score   int  `json:"score"`
	Streak  int  `json:"streak"`
	IsHost  bool `json:"isHost"`
	IsReady bool `json:"isReady"`

	// Per-round scratch fields, reset at the start of every round.
	HasGuessed       bool `json:"hasGuessed"`
	LastGuessCorrect bool `json:"lastGuessCorrect"`
	RoundScore       int  `json:"roundScore"`
}

// ResetRound clears the per-round scratch fields.
func (p *Player) ResetRound() {
	p.HasGuessed = false
	p.LastGuessCorrect = false
	p.RoundScore = 0
}

// ResetGame clears cumulative and per-round state ahead of a fresh game.
func (p *Player) ResetGame() {
	p.Score = 0
	p.Streak = 0
	p.ResetRound()
}
