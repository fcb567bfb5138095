// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jamsesh/jamsesh/internal/game"
	"github.com/jamsesh/jamsesh/internal/middleware"
)

// GameWSHandler upgrades the HTTP connection to a websocket and runs the
// read loop until the client goes away. One websocket is one connection id;
// lobby membership hangs off that id in the registry.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		// Authenticate before upgrading so the Set-Cookie header can
		// still go out with the handshake response.
		sessionID, err := EnsureEphemeralSession(w, r)
		if err != nil {
			logger.Warnf("session setup failed for %s: %v", remoteAddr, err)
			http.Error(w, "session setup failed", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"jamsesh"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "jamsesh" {
			c.Close(BadSubprotocolError, "client must speak the jamsesh subprotocol")
			return
		}

		connID := uuid.NewString()
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)
		logger.WithFields(logrus.Fields{"conn": connID, "session": sessionID, "remote": remoteAddr}).Info("client connected")

		client := gs.Hub.Register(connID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, client, logger)

		readErr := readPump(ctx, c, gs, connID, logger)

		// Cleanup after the read pump exits for any reason.
		gs.HandleDisconnect(connID)
		gs.Hub.Unregister(connID)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}

// readPump reads client messages and routes them until the connection
// closes or the context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, connID string, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			logger.Warnf("read error for conn %s: %v (status %d)", connID, err, status)
			return err
		}

		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text message type %d from conn %s", typ, connID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid json from conn %s: %v", connID, err)
			gs.sendError(connID, "invalid JSON format")
			continue
		}

		gs.HandleMessage(connID, msg)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// writePump drains the client's outbound channel onto the websocket and
// sends periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, client *Client, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-client.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("failed to marshal outgoing event for conn %s: %v", client.ConnID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("write failed for conn %s: %v", client.ConnID, err)
				return
			}
			switch ev.Type {
			case game.EventKicked:
				c.Close(KickedByHostError, "removed by host")
				return
			case game.EventLobbyClosed:
				c.Close(LobbyExpiredError, "lobby expired")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for conn %s, assuming disconnect: %v", client.ConnID, err)
				return
			}
		}
	}
}
