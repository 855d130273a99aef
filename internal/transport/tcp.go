package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// TCPDialer dials a plain or TLS TCP connection, framing each MTProto
// wire frame with a 4-byte big-endian length prefix of its own (TCP has
// no message boundaries; MTProto's own abridged/intermediate framing is
// a transport-layer concern the core leaves to its host, so this carrier
// supplies the minimal framing needed to recover frame boundaries).
type TCPDialer struct{}

// NewTCPDialer creates a TCPDialer.
func NewTCPDialer() *TCPDialer { return &TCPDialer{} }

func (d *TCPDialer) Dial(ctx context.Context, addr string, opts DialOptions) (Carrier, error) {
	var dialer net.Dialer
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: tcp dial: %w", err)
	}

	if opts.TLSConfig != nil {
		tlsConn, err := upgradeTLS(ctx, conn, opts.TLSConfig)
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	return &tcpCarrier{conn: conn}, nil
}

type tcpCarrier struct {
	conn net.Conn
}

func (c *tcpCarrier) Send(ctx context.Context, frame []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(dl)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := c.conn.Write(header[:]); err != nil {
		return fmt.Errorf("transport: tcp write length: %w", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("transport: tcp write frame: %w", err)
	}
	return nil
}

func (c *tcpCarrier) Recv(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(dl)
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}

	var header [4]byte
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return nil, fmt.Errorf("transport: tcp read length: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("transport: tcp frame length %d exceeds %d byte limit", n, maxFrameSize)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(c.conn, frame); err != nil {
		return nil, fmt.Errorf("transport: tcp read frame: %w", err)
	}
	return frame, nil
}

func (c *tcpCarrier) Close() error { return c.conn.Close() }
func (c *tcpCarrier) Kind() Kind   { return KindTCP }
