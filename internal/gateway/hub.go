package gateway

import (
	"log/slog"
	"sync"

	"bossrush/internal/events"
)

// Hub tracks live connections and the broadcast group of each party. It is
// the events.Publisher the services emit through. Events are encoded before
// fan-out and enqueued without blocking, so publishers may hold party locks
// while emitting. No event ever crosses a party boundary: delivery is
// strictly within one group or to one named connection.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	groups      map[string]map[string]struct{} // party code -> connection ids
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		groups:      make(map[string]map[string]struct{}),
	}
}

// Register makes a connection addressable by SendTo
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID] = conn
}

// Unregister drops a connection and removes it from its party group
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.connections, connectionID)
	for code, group := range h.groups {
		if _, ok := group[connectionID]; ok {
			delete(group, connectionID)
			if len(group) == 0 {
				delete(h.groups, code)
			}
		}
	}
}

// JoinGroup adds a connection to a party's broadcast group
func (h *Hub) JoinGroup(code, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[code]
	if !ok {
		group = make(map[string]struct{})
		h.groups[code] = group
	}
	group[connectionID] = struct{}{}
}

// LeaveGroup removes a connection from a party's broadcast group
func (h *Hub) LeaveGroup(code, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[code]
	if !ok {
		return
	}
	delete(group, connectionID)
	if len(group) == 0 {
		delete(h.groups, code)
	}
}

// Broadcast delivers the event to every connection joined to the party
func (h *Hub) Broadcast(code string, event events.Event) {
	h.broadcast(code, "", event)
}

// BroadcastExcept delivers the event to every connection in the party's
// group except the named one
func (h *Hub) BroadcastExcept(code, exceptID string, event events.Event) {
	h.broadcast(code, exceptID, event)
}

// SendTo delivers the event to a single connection; unknown connections are
// a no-op (the peer may have just disconnected)
func (h *Hub) SendTo(connectionID string, event events.Event) {
	data, err := encodeEvent(event)
	if err != nil {
		slog.Error("failed to encode event", "type", event.EventType(), "error", err)
		return
	}

	h.mu.RLock()
	conn := h.connections[connectionID]
	h.mu.RUnlock()

	if conn != nil {
		conn.Enqueue(data)
	}
}

func (h *Hub) broadcast(code, exceptID string, event events.Event) {
	data, err := encodeEvent(event)
	if err != nil {
		slog.Error("failed to encode event", "type", event.EventType(), "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.groups[code]))
	for id := range h.groups[code] {
		if id == exceptID {
			continue
		}
		if conn, ok := h.connections[id]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		conn.Enqueue(data)
	}
}
