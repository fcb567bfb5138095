// internal/handlers/server.go
package handlers

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jamsesh/jamsesh/internal/game"
	"github.com/jamsesh/jamsesh/internal/models"
)

// GameServer wires the lobby registry, the round scheduler and the hub
// together. The scheduler broadcasts through the hub; the websocket read
// pumps feed client messages into HandleMessage.
type GameServer struct {
	Registry  *game.Registry
	Scheduler *game.Scheduler
	Hub       *Hub
	Logger    *logrus.Logger
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	registry := game.NewRegistry()
	hub := NewHub()
	sched := game.NewScheduler(registry)
	sched.BroadcastFn = hub.Broadcast
	return &GameServer{
		Registry:  registry,
		Scheduler: sched,
		Hub:       hub,
		Logger:    logger,
	}
}

// ClientMessage is the inbound envelope. Type selects the action; the
// remaining fields are per-action and optional.
type ClientMessage struct {
	Type     string                 `json:"type"`
	Code     string                 `json:"code,omitempty"`
	Name     string                 `json:"name,omitempty"`
	Avatar   *models.Avatar         `json:"avatar,omitempty"`
	Settings map[string]interface{} `json:"settings,omitempty"`
	Song     *models.Song           `json:"song,omitempty"`
	Songs    []models.Song          `json:"songs,omitempty"`
	SongID   string                 `json:"songId,omitempty"`
	Guess    string                 `json:"guess,omitempty"`
	Message  string                 `json:"message,omitempty"`
	TargetID string                 `json:"targetId,omitempty"`
}

func (s *GameServer) sendError(connID, msg string) {
	s.Hub.SendTo(connID, game.Event{Type: game.EventError, Payload: game.ErrorPayload{Message: msg}})
}

// reject reports an operation failure to the sender. Unauthorized host-only
// attempts are dropped silently; the client UI never offers those controls
// to non-hosts, so an error frame would only aid probing.
func (s *GameServer) reject(connID string, err error) {
	if errors.Is(err, game.ErrNotHost) {
		return
	}
	s.sendError(connID, err.Error())
}

// snapshot fetches the current lobby snapshot for a code.
func (s *GameServer) snapshot(code string) (game.LobbySnapshot, bool) {
	l, ok := s.Registry.GetLobby(code)
	if !ok {
		return game.LobbySnapshot{}, false
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.SnapshotUnsafe(), true
}

// HandleMessage routes one client message. Errors go back to the sender
// only; successful mutations broadcast to the room.
func (s *GameServer) HandleMessage(connID string, msg ClientMessage) {
	switch msg.Type {
	case "create_lobby":
		s.handleCreate(connID, msg)
	case "join_lobby":
		s.handleJoin(connID, msg)
	case "leave_lobby":
		s.HandleDisconnect(connID)
	case "update_settings":
		s.handleUpdateSettings(connID, msg)
	case "add_song":
		s.handleAddSong(connID, msg)
	case "add_songs_bulk":
		s.handleAddSongsBulk(connID, msg)
	case "remove_song":
		s.handleRemoveSong(connID, msg)
	case "toggle_ready":
		s.handleToggleReady(connID)
	case "start_game":
		s.handleStartGame(connID)
	case "submit_guess":
		s.handleSubmitGuess(connID, msg)
	case "skip_round":
		s.handleSkipRound(connID)
	case "chat":
		s.handleChat(connID, msg)
	case "kick_player":
		s.handleKick(connID, msg)
	default:
		s.sendError(connID, "unknown message type: "+msg.Type)
	}
}

func playerName(msg ClientMessage) string {
	if msg.Name == "" {
		return "Guest"
	}
	return msg.Name
}

func playerAvatar(msg ClientMessage) models.Avatar {
	if msg.Avatar == nil {
		return models.Avatar{Emoji: "🎵", Color: "#7c3aed"}
	}
	return *msg.Avatar
}

func (s *GameServer) handleCreate(connID string, msg ClientMessage) {
	l, p := s.Registry.CreateLobby(connID, playerName(msg), playerAvatar(msg))
	s.Hub.JoinRoom(l.Code, connID)
	snap, _ := s.snapshot(l.Code)
	s.Hub.SendTo(connID, game.Event{Type: game.EventLobbyState, Payload: snap})
	s.Logger.WithFields(logrus.Fields{"code": l.Code, "player": p.ID}).Info("lobby created")
}

func (s *GameServer) handleJoin(connID string, msg ClientMessage) {
	l, p, err := s.Registry.JoinLobby(connID, msg.Code, playerName(msg), playerAvatar(msg))
	if err != nil {
		s.sendError(connID, err.Error())
		return
	}
	s.Hub.JoinRoom(l.Code, connID)
	snap, _ := s.snapshot(l.Code)
	s.Hub.Broadcast(l.Code, game.Event{Type: game.EventPlayerJoined, Payload: snap})
	s.Logger.WithFields(logrus.Fields{"code": l.Code, "player": p.ID}).Info("player joined")
}

func (s *GameServer) handleUpdateSettings(connID string, msg ClientMessage) {
	settings, changed, err := s.Registry.UpdateSettings(connID, msg.Settings)
	if err != nil {
		s.reject(connID, err)
		return
	}
	if !changed {
		return
	}
	l, _, _ := s.Registry.Resolve(connID)
	if l != nil {
		s.Hub.Broadcast(l.Code, game.Event{Type: game.EventSettingsUpdated, Payload: settings})
	}
}

func (s *GameServer) broadcastSongs(connID string) {
	l, _, err := s.Registry.Resolve(connID)
	if err != nil {
		return
	}
	snap, ok := s.snapshot(l.Code)
	if ok {
		s.Hub.Broadcast(l.Code, game.Event{Type: game.EventSongsUpdated, Payload: snap.Songs})
	}
}

func (s *GameServer) handleAddSong(connID string, msg ClientMessage) {
	if msg.Song == nil {
		s.sendError(connID, "missing song")
		return
	}
	if _, err := s.Registry.AddSong(connID, *msg.Song); err != nil {
		s.reject(connID, err)
		return
	}
	s.broadcastSongs(connID)
}

func (s *GameServer) handleAddSongsBulk(connID string, msg ClientMessage) {
	if len(msg.Songs) == 0 {
		s.sendError(connID, "missing songs")
		return
	}
	if _, err := s.Registry.AddSongsBulk(connID, msg.Songs); err != nil {
		s.reject(connID, err)
		return
	}
	s.broadcastSongs(connID)
}

func (s *GameServer) handleRemoveSong(connID string, msg ClientMessage) {
	songID, err := uuid.Parse(msg.SongID)
	if err != nil {
		s.sendError(connID, "invalid songId")
		return
	}
	if err := s.Registry.RemoveSong(connID, songID); err != nil {
		s.reject(connID, err)
		return
	}
	s.broadcastSongs(connID)
}

func (s *GameServer) handleToggleReady(connID string) {
	if _, err := s.Registry.ToggleReady(connID); err != nil {
		s.sendError(connID, err.Error())
		return
	}
	l, _, _ := s.Registry.Resolve(connID)
	if l != nil {
		snap, _ := s.snapshot(l.Code)
		s.Hub.Broadcast(l.Code, game.Event{Type: game.EventReadyUpdate, Payload: snap})
	}
}

func (s *GameServer) handleStartGame(connID string) {
	l, err := s.Registry.StartGame(connID)
	if err != nil {
		s.reject(connID, err)
		return
	}
	s.Logger.WithField("code", l.Code).Info("game starting")
	s.Scheduler.BeginGame(l.Code)
}

func (s *GameServer) handleSubmitGuess(connID string, msg ClientMessage) {
	rec, p, allGuessed, round, err := s.Registry.SubmitGuess(connID, msg.Guess)
	if err != nil {
		s.sendError(connID, err.Error())
		return
	}
	l, _, resolveErr := s.Registry.Resolve(connID)
	if resolveErr != nil {
		return
	}
	s.Hub.Broadcast(l.Code, game.Event{
		Type:    game.EventPlayerGuessed,
		Payload: game.PlayerGuessedPayload{PlayerID: p.ID, Correct: rec.Correct},
	})
	if allGuessed {
		s.Scheduler.EndRound(l.Code, round)
	}
}

func (s *GameServer) handleSkipRound(connID string) {
	l, playerID, err := s.Registry.Resolve(connID)
	if err != nil {
		s.sendError(connID, err.Error())
		return
	}
	l.Mu.Lock()
	isHost := l.HostID == playerID
	l.Mu.Unlock()
	if !isHost {
		s.sendError(connID, game.ErrNotHost.Error())
		return
	}
	s.Scheduler.ForceEndRound(l.Code)
}

func (s *GameServer) handleChat(connID string, msg ClientMessage) {
	if msg.Message == "" {
		return
	}
	l, playerID, err := s.Registry.Resolve(connID)
	if err != nil {
		s.sendError(connID, err.Error())
		return
	}
	l.Mu.Lock()
	p := l.Players[playerID]
	var payload game.ChatPayload
	if p != nil {
		payload = game.NewChatPayload(p, msg.Message)
	}
	l.Mu.Unlock()
	if p != nil {
		s.Hub.Broadcast(l.Code, game.Event{Type: game.EventChat, Payload: payload})
	}
}

func (s *GameServer) handleKick(connID string, msg ClientMessage) {
	targetID, err := uuid.Parse(msg.TargetID)
	if err != nil {
		s.sendError(connID, "invalid targetId")
		return
	}
	l, _, resolveErr := s.Registry.Resolve(connID)
	if resolveErr != nil {
		s.sendError(connID, resolveErr.Error())
		return
	}
	code := l.Code
	removed, err := s.Registry.KickPlayer(connID, targetID)
	if err != nil {
		s.reject(connID, err)
		return
	}
	s.Hub.SendTo(removed.ConnectionID, game.Event{Type: game.EventKicked})
	s.Hub.LeaveRoom(code, removed.ConnectionID)
	snap, ok := s.snapshot(code)
	if ok {
		s.Hub.Broadcast(code, game.Event{Type: game.EventPlayerLeft, Payload: snap})
	}
	s.maybeEndRound(code)
}

// maybeEndRound ends the active round when a departure left everyone else
// already guessed.
func (s *GameServer) maybeEndRound(code string) {
	l, ok := s.Registry.GetLobby(code)
	if !ok {
		return
	}
	l.Mu.Lock()
	round := 0
	if l.CurrentRound != nil && len(l.Players) > 0 {
		all := true
		for _, p := range l.Players {
			if !p.HasGuessed {
				all = false
				break
			}
		}
		if all {
			round = l.CurrentRound.RoundNumber
		}
	}
	l.Mu.Unlock()
	if round > 0 {
		s.Scheduler.EndRound(code, round)
	}
}

// HandleDisconnect removes the connection's player from their lobby and
// broadcasts the membership change. Also the leave_lobby path.
func (s *GameServer) HandleDisconnect(connID string) {
	res, err := s.Registry.LeaveLobby(connID)
	if err != nil {
		// Connection was never in a lobby.
		return
	}
	code := res.Lobby.Code
	s.Hub.LeaveRoom(code, connID)

	if res.LobbyDeleted {
		s.Scheduler.CancelLobby(code)
		s.Hub.CloseRoom(code)
		s.Logger.WithField("code", code).Info("lobby emptied and deleted")
		return
	}

	snap, ok := s.snapshot(code)
	if ok {
		s.Hub.Broadcast(code, game.Event{Type: game.EventPlayerLeft, Payload: snap})
	}
	if res.AllGuessed {
		s.maybeEndRound(code)
	}
}
