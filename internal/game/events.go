// internal/game/events.go
package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/jamsesh/jamsesh/internal/models"
)

// EventType tags outbound events. The transport layer decides fan-out; the
// core only names what happened.
type EventType string

const (
	EventLobbyState      EventType = "lobby_state"
	EventPlayerJoined    EventType = "player_joined"
	EventPlayerLeft      EventType = "player_left"
	EventSettingsUpdated EventType = "settings_updated"
	EventSongsUpdated    EventType = "songs_updated"
	EventReadyUpdate     EventType = "ready_update"
	EventGameStart       EventType = "game_start"
	EventRoundStart      EventType = "round_start"
	EventRoundTick       EventType = "round_tick"
	EventPlayerGuessed   EventType = "player_guessed"
	EventRoundEnd        EventType = "round_end"
	EventGameOver        EventType = "game_over"
	EventChat            EventType = "chat"
	EventKicked          EventType = "kicked"
	EventLobbyClosed     EventType = "lobby_closed"
	EventError           EventType = "error"
)

// Event is the single outbound envelope. Payload is one of the *Payload
// structs below (or LobbySnapshot).
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// PlayerView is the client-visible slice of a player.
type PlayerView struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	Avatar           models.Avatar `json:"avatar"`
	Score            int           `json:"score"`
	Streak           int           `json:"streak"`
	IsHost           bool          `json:"isHost"`
	IsReady          bool          `json:"isReady"`
	HasGuessed       bool          `json:"hasGuessed"`
	LastGuessCorrect bool          `json:"lastGuessCorrect"`
	RoundScore       int           `json:"roundScore"`
}

func newPlayerView(p *models.Player) PlayerView {
	return PlayerView{
		ID:               p.ID,
		Name:             p.Name,
		Avatar:           p.Avatar,
		Score:            p.Score,
		Streak:           p.Streak,
		IsHost:           p.IsHost,
		IsReady:          p.IsReady,
		HasGuessed:       p.HasGuessed,
		LastGuessCorrect: p.LastGuessCorrect,
		RoundScore:       p.RoundScore,
	}
}

// LobbySnapshot is the full lobby view a client needs to render the room.
type LobbySnapshot struct {
	Code         string        `json:"code"`
	HostID       uuid.UUID     `json:"hostId"`
	State        LobbyState    `json:"state"`
	Players      []PlayerView  `json:"players"`
	Settings     GameSettings  `json:"settings"`
	Songs        []models.Song `json:"songs"`
	RoundNumber  int           `json:"roundNumber"`
	RoundsPlayed int           `json:"roundsPlayed"`
}

// RoundStartPayload announces a round. The song's identity is withheld
// until reveal; only playback and timing data go out.
type RoundStartPayload struct {
	RoundNumber  int      `json:"roundNumber"`
	TotalRounds  int      `json:"totalRounds"`
	TimePerRound int      `json:"timePerRound"`
	GuessStyle   string   `json:"guessStyle"`
	Options      []string `json:"options,omitempty"`
	PreviewURL   string   `json:"previewUrl,omitempty"`
	StartTime    float64  `json:"startTime"`
	EndTime      float64  `json:"endTime"`
}

// RoundTickPayload carries the visible countdown.
type RoundTickPayload struct {
	SecondsLeft int `json:"secondsLeft"`
}

// PlayerGuessedPayload tells the room that a player answered. Only the
// correctness flag goes out, never the guessed text.
type PlayerGuessedPayload struct {
	PlayerID uuid.UUID `json:"playerId"`
	Correct  bool      `json:"correct"`
}

// GuessView is one player's recorded guess, included in the reveal.
type GuessView struct {
	Guess   string  `json:"guess"`
	Correct bool    `json:"correct"`
	Elapsed float64 `json:"elapsed"`
	Score   int     `json:"score"`
}

// RoundEndPayload is the reveal: the song, cumulative scores, and every
// player's guess record for the round.
type RoundEndPayload struct {
	RoundNumber int                  `json:"roundNumber"`
	Song        models.Song          `json:"song"`
	Scoreboard  map[string]int       `json:"scoreboard"`
	Guesses     map[string]GuessView `json:"guesses"`
	GameOver    bool                 `json:"gameOver"`
}

// GameOverPayload carries the final ranking. Players are sorted by score
// descending with join order breaking ties; the first entry is the MVP.
type GameOverPayload struct {
	Players []PlayerView `json:"players"`
	MVP     *PlayerView  `json:"mvp,omitempty"`
}

// ChatPayload is a relayed chat line.
type ChatPayload struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Message  string    `json:"message"`
	Ts       int64     `json:"ts"`
}

// NewChatPayload stamps a chat line with the current time.
func NewChatPayload(p *models.Player, msg string) ChatPayload {
	return ChatPayload{
		PlayerID: p.ID,
		Name:     p.Name,
		Message:  msg,
		Ts:       time.Now().Unix(),
	}
}

// ErrorPayload is sent to a single connection when an operation fails.
type ErrorPayload struct {
	Message string `json:"message"`
}
