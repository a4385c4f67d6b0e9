package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sendQueueSize = 64

// Connection is one client attached to the gateway. Outbound frames pass
// through a buffered queue drained by a single writer goroutine; a full
// queue drops the frame so a slow or dead client never stalls its party.
type Connection struct {
	ID string

	transport Transport
	sendCh    chan []byte

	closeOnce sync.Once
	done      chan struct{}

	mu        sync.Mutex
	partyCode string
}

// NewConnection creates a connection over the given transport
func NewConnection(id string, transport Transport) *Connection {
	return &Connection{
		ID:        id,
		transport: transport,
		sendCh:    make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// PartyCode returns the party this connection is currently joined to, empty
// if none. A connection belongs to at most one party at a time.
func (c *Connection) PartyCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partyCode
}

// SetPartyCode records the party this connection joined
func (c *Connection) SetPartyCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partyCode = code
}

// Enqueue queues a frame for delivery; delivery is fire-and-forget
func (c *Connection) Enqueue(data []byte) {
	select {
	case <-c.done:
	case c.sendCh <- data:
	default:
		slog.Warn("send queue full, frame dropped", "connection_id", c.ID)
	}
}

// WriteLoop drains the send queue until the context is cancelled or the
// transport fails
func (c *Connection) WriteLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.transport.Write(ctx, data); err != nil {
				slog.DebugContext(ctx, "write failed", "connection_id", c.ID, "error", err)
				return
			}
		}
	}
}

// PingLoop sends a transport ping on a fixed interval. The first failed ping
// returns, which tears the connection down.
func (c *Connection) PingLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := c.transport.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// Read returns the next inbound frame from the transport
func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	return c.transport.Read(ctx)
}

// Close shuts the connection down exactly once
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.transport.Close(code, reason)
	})
}
