// internal/game/lobby.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamsesh/jamsesh/internal/models"
)

// LobbyState is the lobby's position in the game lifecycle.
type LobbyState string

const (
	StateWaiting  LobbyState = "waiting"
	StateStarting LobbyState = "starting"
	StatePlaying  LobbyState = "playing"
	StateRoundEnd LobbyState = "round_end"
	StateGameOver LobbyState = "game_over"
)

// Lobby is one game session: players, settings, the song pool, the active
// round and the history of finished rounds. All mutation happens under Mu;
// methods with the Unsafe suffix assume the caller holds it (the idiom used
// throughout this package).
type Lobby struct {
	Code      string
	HostID    uuid.UUID
	State     LobbyState
	Players   map[uuid.UUID]*models.Player
	Settings  GameSettings
	Songs     []*models.Song
	CurrentRound *RoundState
	RoundHistory []*RoundState
	CreatedAt time.Time

	// order tracks join order. Host transfer promotes the earliest
	// remaining joiner rather than relying on map iteration order.
	order []uuid.UUID

	Mu sync.Mutex
}

// NewLobby builds an empty waiting lobby with default settings.
func NewLobby(code string) *Lobby {
	return &Lobby{
		Code:      code,
		State:     StateWaiting,
		Players:   make(map[uuid.UUID]*models.Player),
		Settings:  DefaultSettings(),
		CreatedAt: time.Now(),
	}
}

// AddPlayerUnsafe appends the player in join order.
func (l *Lobby) AddPlayerUnsafe(p *models.Player) {
	l.Players[p.ID] = p
	l.order = append(l.order, p.ID)
	if p.IsHost {
		l.HostID = p.ID
	}
}

// RemovePlayerUnsafe removes the player and, if they were host and anyone
// remains, promotes the earliest remaining joiner. Returns the removed
// player and the new host (nil when unchanged or the lobby emptied).
func (l *Lobby) RemovePlayerUnsafe(id uuid.UUID) (*models.Player, *models.Player) {
	p, ok := l.Players[id]
	if !ok {
		return nil, nil
	}
	delete(l.Players, id)
	for i, oid := range l.order {
		if oid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	if l.CurrentRound != nil {
		delete(l.CurrentRound.Guesses, id)
	}
	if !p.IsHost || len(l.order) == 0 {
		return p, nil
	}
	next := l.Players[l.order[0]]
	next.IsHost = true
	next.IsReady = true
	l.HostID = next.ID
	return p, next
}

// PlayersInOrderUnsafe returns the players in join order.
func (l *Lobby) PlayersInOrderUnsafe() []*models.Player {
	out := make([]*models.Player, 0, len(l.order))
	for _, id := range l.order {
		if p, ok := l.Players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// CanStartUnsafe reports whether the game may begin: at least one player,
// at least three songs in the pool, and every non-host player ready. The
// host may start alone (solo practice).
func (l *Lobby) CanStartUnsafe() bool {
	if len(l.Players) < 1 || len(l.Songs) < 3 {
		return false
	}
	for _, p := range l.Players {
		if !p.IsHost && !p.IsReady {
			return false
		}
	}
	return true
}

// StartGameUnsafe resets per-game player state, clears round history,
// clamps the round count to the pool size and moves the lobby into play.
// Preconditions are the caller's responsibility.
func (l *Lobby) StartGameUnsafe() {
	for _, p := range l.Players {
		p.ResetGame()
	}
	l.RoundHistory = nil
	l.CurrentRound = nil
	if l.Settings.Rounds > len(l.Songs) {
		l.Settings.Rounds = len(l.Songs)
	}
	l.State = StatePlaying
}

// ResetToWaitingUnsafe returns the lobby to the waiting state after a game,
// keeping cumulative scores visible but requiring non-hosts to ready up
// again.
func (l *Lobby) ResetToWaitingUnsafe() {
	l.State = StateWaiting
	l.CurrentRound = nil
	for _, p := range l.Players {
		if !p.IsHost {
			p.IsReady = false
		}
	}
}

// unusedSongsUnsafe returns pool songs not yet played this game and not
// currently in play.
func (l *Lobby) unusedSongsUnsafe() []*models.Song {
	used := make(map[uuid.UUID]bool, len(l.RoundHistory)+1)
	for _, rs := range l.RoundHistory {
		used[rs.Song.ID] = true
	}
	if l.CurrentRound != nil {
		used[l.CurrentRound.Song.ID] = true
	}
	var unused []*models.Song
	for _, s := range l.Songs {
		if !used[s.ID] {
			unused = append(unused, s)
		}
	}
	return unused
}

// SnapshotUnsafe builds the full lobby view sent to clients on join and
// after membership or settings changes.
func (l *Lobby) SnapshotUnsafe() LobbySnapshot {
	players := make([]PlayerView, 0, len(l.order))
	for _, p := range l.PlayersInOrderUnsafe() {
		players = append(players, newPlayerView(p))
	}
	round := 0
	if l.CurrentRound != nil {
		round = l.CurrentRound.RoundNumber
	}
	return LobbySnapshot{
		Code:         l.Code,
		HostID:       l.HostID,
		State:        l.State,
		Players:      players,
		Settings:     l.Settings,
		Songs:        songViewsUnsafe(l.Songs),
		RoundNumber:  round,
		RoundsPlayed: len(l.RoundHistory),
	}
}

func songViewsUnsafe(songs []*models.Song) []models.Song {
	out := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		out = append(out, *s)
	}
	return out
}
