// Package transport provides the (send_bytes, recv_bytes) byte-stream
// carriers the session core dials through. The core itself only ever
// sees whole MTProto wire frames handed to Carrier.Send and produced by
// Carrier.Recv — it neither knows nor cares which carrier moved them.
package transport

import (
	"context"
	"crypto/tls"
	"time"
)

// Kind identifies a carrier implementation.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindWebSocket Kind = "ws"
	KindQUIC      Kind = "quic"
	KindHTTP2     Kind = "h2"
)

// Carrier ships whole MTProto wire frames to and from a single remote
// endpoint. One Carrier corresponds to one EncryptedSession; MTProto
// does not multiplex multiple sessions over a single transport
// connection the way a stream-multiplexing mesh protocol would.
type Carrier interface {
	// Send transports one complete wire frame (as produced by
	// session.Pack) to the remote end.
	Send(ctx context.Context, frame []byte) error

	// Recv returns the next complete wire frame from the remote end.
	Recv(ctx context.Context) ([]byte, error)

	// Close releases the underlying connection.
	Close() error

	// Kind reports which carrier implementation this is.
	Kind() Kind
}

// Dialer creates a Carrier connected to addr.
type Dialer interface {
	Dial(ctx context.Context, addr string, opts DialOptions) (Carrier, error)
}

// DialOptions configures a carrier dial.
type DialOptions struct {
	// TLSConfig is used by the ws, quic, and h2 carriers. The tcp
	// carrier wraps its connection in TLS only when it is set; when it
	// is nil, MTProto's own AES-IGE framing is the only confidentiality
	// layer over plain TCP.
	TLSConfig *tls.Config

	// Path is the HTTP path used by the ws and h2 carriers.
	Path string

	// Timeout bounds the dial itself, not subsequent Send/Recv calls.
	Timeout time.Duration
}

// DefaultDialOptions returns DialOptions with sensible defaults.
func DefaultDialOptions() DialOptions {
	return DialOptions{Timeout: 30 * time.Second}
}

// maxFrameSize bounds a single incoming wire frame, a defensive limit
// against a peer claiming an implausible frame length (the largest real
// MTProto frame is well under 1 MiB; this budget is generous headroom
// above that for large rpc_result payloads while still rejecting
// obviously hostile values).
const maxFrameSize = 32 * 1024 * 1024
