package transport

import (
	"context"
	"fmt"
	"net/http"

	"nhooyr.io/websocket"
)

const wsDefaultReadLimit = 32 * 1024 * 1024

// WebSocketDialer dials MTProto-over-WebSocket, a real, shipped
// Telegram transport. Each wire frame maps onto one binary WebSocket
// message, so no extra length framing is needed on top.
type WebSocketDialer struct{}

// NewWebSocketDialer creates a WebSocketDialer.
func NewWebSocketDialer() *WebSocketDialer { return &WebSocketDialer{} }

func (d *WebSocketDialer) Dial(ctx context.Context, addr string, opts DialOptions) (Carrier, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	dialOpts := &websocket.DialOptions{
		Subprotocols: []string{DefaultWSSubprotocol},
	}
	if opts.TLSConfig != nil {
		dialOpts.HTTPClient = &http.Client{
			Transport: &http.Transport{TLSClientConfig: opts.TLSConfig},
		}
	}

	url := "wss://" + addr
	if opts.Path != "" {
		url += opts.Path
	}

	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket dial: %w", err)
	}
	conn.SetReadLimit(wsDefaultReadLimit)

	return &wsCarrier{conn: conn}, nil
}

type wsCarrier struct {
	conn *websocket.Conn
}

func (c *wsCarrier) Send(ctx context.Context, frame []byte) error {
	if err := c.conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
		return fmt.Errorf("transport: websocket write: %w", err)
	}
	return nil
}

func (c *wsCarrier) Recv(ctx context.Context) ([]byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket read: %w", err)
	}
	if typ != websocket.MessageBinary {
		return nil, fmt.Errorf("transport: unexpected websocket message type %v", typ)
	}
	return data, nil
}

func (c *wsCarrier) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *wsCarrier) Kind() Kind { return KindWebSocket }
