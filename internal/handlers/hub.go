// internal/handlers/hub.go
package handlers

import (
	"sync"

	"github.com/jamsesh/jamsesh/internal/game"
)

// Client is one connected websocket's outbound side. The write pump drains
// OutChan; a full channel drops the event rather than blocking game logic.
type Client struct {
	ConnID  string
	OutChan chan game.Event

	closeOnce sync.Once
}

func (c *Client) send(ev game.Event) {
	select {
	case c.OutChan <- ev:
	default:
		// Slow consumer. Dropping beats stalling the broadcaster; the
		// next lobby_state snapshot resynchronizes the client.
	}
}

// Close closes the outbound channel exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.OutChan) })
}

// Hub tracks connections and their room membership and fans events out.
// Rooms are keyed by lobby code. The hub knows nothing about game rules;
// it only moves envelopes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register creates the outbound side for a new connection.
func (h *Hub) Register(connID string) *Client {
	c := &Client{ConnID: connID, OutChan: make(chan game.Event, 16)}
	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()
	return c
}

// Unregister removes the connection from the hub and every room, closing
// its outbound channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	delete(h.clients, connID)
	for code, room := range h.rooms {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, code)
		}
	}
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

// JoinRoom adds the connection to a lobby's fan-out set.
func (h *Hub) JoinRoom(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	room, ok := h.rooms[code]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[code] = room
	}
	room[connID] = c
}

// LeaveRoom removes the connection from a lobby's fan-out set, keeping the
// connection itself alive.
func (h *Hub) LeaveRoom(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(h.rooms, code)
	}
}

// CloseRoom drops the room without closing its connections. Used when a
// lobby is deleted or reaped.
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// Broadcast sends the event to every connection in the room.
func (h *Hub) Broadcast(code string, ev game.Event) {
	h.mu.RLock()
	room := h.rooms[code]
	targets := make([]*Client, 0, len(room))
	for _, c := range room {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.send(ev)
	}
}

// SendTo sends the event to a single connection.
func (h *Hub) SendTo(connID string, ev game.Event) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.send(ev)
	}
}
