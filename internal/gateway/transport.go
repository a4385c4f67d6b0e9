package gateway

import (
	"context"

	"github.com/coder/websocket"
)

// Transport abstracts one bidirectional client channel so tests can stand in
// for a live websocket
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Close(code int, reason string) error
}

type wsTransport struct {
	conn *websocket.Conn
}

// NewWebsocketTransport wraps a websocket connection as a Transport
func NewWebsocketTransport(conn *websocket.Conn) Transport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Ping(ctx context.Context) error {
	return t.conn.Ping(ctx)
}

func (t *wsTransport) Close(code int, reason string) error {
	return t.conn.Close(websocket.StatusCode(code), reason)
}
