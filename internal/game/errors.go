// internal/game/errors.go
package game

import "errors"

// Sentinel errors returned by Registry and round operations. The transport
// layer maps these onto error frames; privileged operations attempted by a
// non-host surface ErrNotHost, which the transport usually swallows as a
// silent no-op.
var (
	ErrLobbyNotFound      = errors.New("lobby not found")
	ErrGameInProgress     = errors.New("game already in progress")
	ErrLobbyFull          = errors.New("lobby is full")
	ErrNotHost            = errors.New("only the host can do that")
	ErrNotInLobby         = errors.New("connection is not in a lobby")
	ErrPreconditionFailed = errors.New("game cannot start yet")
	ErrDuplicateGuess     = errors.New("already guessed this round")
	ErrNoActiveRound      = errors.New("no round is active")
)
