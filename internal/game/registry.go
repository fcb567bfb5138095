// internal/game/registry.go
package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamsesh/jamsesh/internal/models"
)

// Lobby codes use a 5-character alphabet with the easily-confused glyphs
// (0/O, 1/I) removed. Lookup is case-insensitive.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 5
)

// Registry is the directory of all live lobbies plus the connection
// indices that resolve "who is this connection" without scanning lobbies.
// The registry mutex guards only the maps; each lobby serializes its own
// mutation under its own mutex, so operations on different lobbies never
// contend.
type Registry struct {
	mu         sync.RWMutex
	lobbies    map[string]*Lobby
	connLobby  map[string]string    // connectionID -> lobby code
	connPlayer map[string]uuid.UUID // connectionID -> player id
}

// NewRegistry returns an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		lobbies:    make(map[string]*Lobby),
		connLobby:  make(map[string]string),
		connPlayer: make(map[string]uuid.UUID),
	}
}

// newCodeLocked generates a code not currently in use. Assumes r.mu held.
func (r *Registry) newCodeLocked() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := r.lobbies[code]; !taken {
			return code
		}
	}
}

// GetLobby looks a lobby up by code, case-insensitively.
func (r *Registry) GetLobby(code string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[strings.ToUpper(code)]
	return l, ok
}

// Resolve maps a connection onto its lobby and player id.
func (r *Registry) Resolve(connID string) (*Lobby, uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.connLobby[connID]
	if !ok {
		return nil, uuid.Nil, ErrNotInLobby
	}
	l, ok := r.lobbies[code]
	if !ok {
		return nil, uuid.Nil, ErrLobbyNotFound
	}
	return l, r.connPlayer[connID], nil
}

// CreateLobby builds a fresh lobby with the creator as host. The host is
// auto-ready; their readiness is cosmetic anyway.
func (r *Registry) CreateLobby(connID, name string, avatar models.Avatar) (*Lobby, *models.Player) {
	p := &models.Player{
		ID:           uuid.New(),
		ConnectionID: connID,
		Name:         name,
		Avatar:       avatar,
		IsHost:       true,
		IsReady:      true,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	code := r.newCodeLocked()
	l := NewLobby(code)
	l.AddPlayerUnsafe(p)
	r.lobbies[code] = l
	r.connLobby[connID] = code
	r.connPlayer[connID] = p.ID
	return l, p
}

// JoinLobby adds a player to an existing waiting lobby. Fails with
// ErrLobbyNotFound, ErrGameInProgress or ErrLobbyFull.
func (r *Registry) JoinLobby(connID, code, name string, avatar models.Avatar) (*Lobby, *models.Player, error) {
	l, ok := r.GetLobby(code)
	if !ok {
		return nil, nil, ErrLobbyNotFound
	}

	p := &models.Player{
		ID:           uuid.New(),
		ConnectionID: connID,
		Name:         name,
		Avatar:       avatar,
	}

	l.Mu.Lock()
	if l.State != StateWaiting {
		l.Mu.Unlock()
		return nil, nil, ErrGameInProgress
	}
	if len(l.Players) >= l.Settings.MaxPlayers {
		l.Mu.Unlock()
		return nil, nil, ErrLobbyFull
	}
	l.AddPlayerUnsafe(p)
	l.Mu.Unlock()

	r.mu.Lock()
	r.connLobby[connID] = l.Code
	r.connPlayer[connID] = p.ID
	r.mu.Unlock()
	return l, p, nil
}

// LeaveResult describes what a departure changed, so the transport layer
// can broadcast accordingly and the scheduler can cancel timers when the
// lobby died.
type LeaveResult struct {
	Lobby        *Lobby
	Player       *models.Player
	NewHost      *models.Player
	LobbyDeleted bool
	AllGuessed   bool
}

// LeaveLobby removes the connection's player. An emptied lobby is deleted.
// If the departing player was the last one still to guess, AllGuessed lets
// the caller end the round early.
func (r *Registry) LeaveLobby(connID string) (*LeaveResult, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	delete(r.connLobby, connID)
	delete(r.connPlayer, connID)
	r.mu.Unlock()

	l.Mu.Lock()
	p, newHost := l.RemovePlayerUnsafe(playerID)
	res := &LeaveResult{Lobby: l, Player: p, NewHost: newHost}
	if len(l.Players) == 0 {
		res.LobbyDeleted = true
	} else if l.CurrentRound != nil {
		all := true
		for _, pl := range l.Players {
			if !pl.HasGuessed {
				all = false
				break
			}
		}
		res.AllGuessed = all
	}
	l.Mu.Unlock()

	if res.LobbyDeleted {
		r.mu.Lock()
		delete(r.lobbies, l.Code)
		r.mu.Unlock()
	}
	return res, nil
}

// UpdateSettings merges a partial settings payload. Host only, and only
// while the lobby is waiting; settings freeze once play starts.
func (r *Registry) UpdateSettings(connID string, partial map[string]interface{}) (GameSettings, bool, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return GameSettings{}, false, err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if playerID != l.HostID {
		return l.Settings, false, ErrNotHost
	}
	if l.State != StateWaiting {
		return l.Settings, false, ErrGameInProgress
	}
	changed := l.Settings.Update(partial)
	return l.Settings, changed, nil
}

// AddSong assigns a fresh id, clamps the snippet window and appends the
// song to the pool. Host only. Adding mid-game is allowed; the random
// round pick absorbs late additions.
func (r *Registry) AddSong(connID string, song models.Song) (*models.Song, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return nil, err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if playerID != l.HostID {
		return nil, ErrNotHost
	}
	return l.addSongUnsafe(song), nil
}

// AddSongsBulk adds a batch of songs in one lock acquisition. Host only.
func (r *Registry) AddSongsBulk(connID string, songs []models.Song) ([]*models.Song, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return nil, err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if playerID != l.HostID {
		return nil, ErrNotHost
	}
	added := make([]*models.Song, 0, len(songs))
	for _, s := range songs {
		added = append(added, l.addSongUnsafe(s))
	}
	return added, nil
}

func (l *Lobby) addSongUnsafe(song models.Song) *models.Song {
	song.ID = uuid.New()
	song.ClampSnippet(l.Settings.SnippetDuration)
	s := &song
	l.Songs = append(l.Songs, s)
	return s
}

// RemoveSong drops a song from the pool by id. Host only.
func (r *Registry) RemoveSong(connID string, songID uuid.UUID) error {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if playerID != l.HostID {
		return ErrNotHost
	}
	for i, s := range l.Songs {
		if s.ID == songID {
			l.Songs = append(l.Songs[:i], l.Songs[i+1:]...)
			return nil
		}
	}
	return nil
}

// ToggleReady flips the caller's ready flag and returns the player.
func (r *Registry) ToggleReady(connID string) (*models.Player, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return nil, err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	p, ok := l.Players[playerID]
	if !ok {
		return nil, ErrNotInLobby
	}
	p.IsReady = !p.IsReady
	return p, nil
}

// StartGame validates preconditions and moves the lobby into play. Host
// only. The scheduler takes over from here.
func (r *Registry) StartGame(connID string) (*Lobby, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return nil, err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if playerID != l.HostID {
		return nil, ErrNotHost
	}
	if l.State != StateWaiting {
		return nil, ErrGameInProgress
	}
	if !l.CanStartUnsafe() {
		return nil, ErrPreconditionFailed
	}
	l.StartGameUnsafe()
	return l, nil
}

// KickPlayer removes the target from the caller's lobby. Host only; the
// host cannot be kicked. Returns the removed player's connection id so the
// transport layer can force-disconnect it.
func (r *Registry) KickPlayer(connID string, targetID uuid.UUID) (*models.Player, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return nil, err
	}
	l.Mu.Lock()
	if playerID != l.HostID {
		l.Mu.Unlock()
		return nil, ErrNotHost
	}
	if targetID == l.HostID {
		l.Mu.Unlock()
		return nil, ErrNotHost
	}
	target, _ := l.RemovePlayerUnsafe(targetID)
	l.Mu.Unlock()
	if target == nil {
		return nil, ErrNotInLobby
	}

	r.mu.Lock()
	delete(r.connLobby, target.ConnectionID)
	delete(r.connPlayer, target.ConnectionID)
	r.mu.Unlock()
	return target, nil
}

// SubmitGuess resolves the connection and records its guess for the active
// round. Returns the record, whether every player has now guessed, and the
// round number so the caller can ask the scheduler for an early end.
func (r *Registry) SubmitGuess(connID, guess string) (*GuessRecord, *models.Player, bool, int, error) {
	l, playerID, err := r.Resolve(connID)
	if err != nil {
		return nil, nil, false, 0, err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	rec, all, err := l.SubmitGuessUnsafe(playerID, guess)
	if err != nil {
		return nil, nil, false, 0, err
	}
	round := 0
	if l.CurrentRound != nil {
		round = l.CurrentRound.RoundNumber
	}
	return rec, l.Players[playerID], all, round, nil
}

// Cleanup deletes every lobby created before maxAge ago, regardless of
// activity, and releases its connection-index entries. Returns the deleted
// codes so the caller can cancel timers and close rooms. The core does not
// schedule this; an external ticker does.
func (r *Registry) Cleanup(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for code, l := range r.lobbies {
		if !l.CreatedAt.Before(cutoff) {
			continue
		}
		l.Mu.Lock()
		for _, p := range l.Players {
			delete(r.connLobby, p.ConnectionID)
			delete(r.connPlayer, p.ConnectionID)
		}
		l.Mu.Unlock()
		delete(r.lobbies, code)
		removed = append(removed, code)
	}
	return removed
}

// LobbyCount reports how many lobbies are live.
func (r *Registry) LobbyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}
