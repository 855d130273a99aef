package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

// Default QUIC configuration values.
const (
	DefaultMaxIdleTimeout  = 60 * time.Second
	DefaultKeepAlivePeriod = 30 * time.Second
)

// QUICDialer dials MTProto over a single QUIC stream. A QUIC stream is,
// like a TCP connection, a raw byte stream with no message boundaries,
// so this carrier applies the same 4-byte length-prefix framing as the
// tcp carrier.
type QUICDialer struct{}

// NewQUICDialer creates a QUICDialer.
func NewQUICDialer() *QUICDialer { return &QUICDialer{} }

func (d *QUICDialer) Dial(ctx context.Context, addr string, opts DialOptions) (Carrier, error) {
	tlsConfig := opts.TLSConfig
	if tlsConfig == nil {
		return nil, fmt.Errorf("transport: quic dial requires a TLS config")
	}
	tlsConfig = ensureALPN(tlsConfig, "mtproto")

	quicConfig := &quic.Config{
		MaxIdleTimeout:  DefaultMaxIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlivePeriod,
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConfig, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("transport: quic dial: %w", err)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "stream open failed")
		return nil, fmt.Errorf("transport: quic open stream: %w", err)
	}

	return &quicCarrier{conn: conn, stream: stream}, nil
}

type quicCarrier struct {
	conn   *quic.Conn
	stream *quic.Stream
}

func (c *quicCarrier) Send(ctx context.Context, frame []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		c.stream.SetWriteDeadline(dl)
	} else {
		c.stream.SetWriteDeadline(time.Time{})
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := c.stream.Write(header[:]); err != nil {
		return fmt.Errorf("transport: quic write length: %w", err)
	}
	if _, err := c.stream.Write(frame); err != nil {
		return fmt.Errorf("transport: quic write frame: %w", err)
	}
	return nil
}

func (c *quicCarrier) Recv(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		c.stream.SetReadDeadline(dl)
	} else {
		c.stream.SetReadDeadline(time.Time{})
	}

	var header [4]byte
	if _, err := io.ReadFull(c.stream, header[:]); err != nil {
		return nil, fmt.Errorf("transport: quic read length: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("transport: quic frame length %d exceeds %d byte limit", n, maxFrameSize)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(c.stream, frame); err != nil {
		return nil, fmt.Errorf("transport: quic read frame: %w", err)
	}
	return frame, nil
}

func (c *quicCarrier) Close() error {
	c.stream.Close()
	return c.conn.CloseWithError(0, "")
}

func (c *quicCarrier) Kind() Kind { return KindQUIC }
