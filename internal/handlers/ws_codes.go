// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby handler. These provide
// more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidSessionError   = 3001 // Session token was invalid and could not be reissued.
	KickedByHostError     = 3002 // The lobby host removed this player.
	LobbyExpiredError     = 3003 // The lobby was reaped for inactivity.
)
