package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/net/http2"
)

const h2DefaultPath = "/mtproto"

// HTTP2Dialer dials MTProto over a single long-lived HTTP/2 POST request
// whose request and response bodies are each treated as one continuous
// byte stream, framed with a 4-byte length prefix per wire frame (HTTP/2
// has no message boundaries of its own, same as a raw TCP connection).
type HTTP2Dialer struct{}

// NewHTTP2Dialer creates an HTTP2Dialer.
func NewHTTP2Dialer() *HTTP2Dialer { return &HTTP2Dialer{} }

func (d *HTTP2Dialer) Dial(ctx context.Context, addr string, opts DialOptions) (Carrier, error) {
	path := opts.Path
	if path == "" {
		path = h2DefaultPath
	}

	tlsConfig := opts.TLSConfig
	if tlsConfig == nil {
		return nil, fmt.Errorf("transport: h2 dial requires a TLS config")
	}
	tlsConfig = ensureALPN(tlsConfig, "h2")

	h2Transport := &http2.Transport{
		TLSClientConfig: tlsConfig,
		AllowHTTP:       false,
	}

	connCtx, connCancel := context.WithCancel(context.Background())

	dialCtx := ctx
	var dialCancel context.CancelFunc
	if opts.Timeout > 0 {
		dialCtx, dialCancel = context.WithTimeout(ctx, opts.Timeout)
	} else {
		dialCtx, dialCancel = context.WithCancel(ctx)
	}
	defer dialCancel()

	pipeReader, pipeWriter := io.Pipe()

	req, err := http.NewRequestWithContext(connCtx, http.MethodPost, "https://"+addr+path, pipeReader)
	if err != nil {
		connCancel()
		pipeWriter.Close()
		return nil, fmt.Errorf("transport: h2 build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	type roundTripResult struct {
		resp *http.Response
		err  error
	}
	resultCh := make(chan roundTripResult, 1)
	go func() {
		resp, err := h2Transport.RoundTrip(req)
		resultCh <- roundTripResult{resp, err}
	}()

	var resp *http.Response
	select {
	case result := <-resultCh:
		if result.err != nil {
			connCancel()
			pipeWriter.Close()
			return nil, fmt.Errorf("transport: h2 dial: %w", result.err)
		}
		resp = result.resp
	case <-dialCtx.Done():
		connCancel()
		pipeWriter.Close()
		return nil, fmt.Errorf("transport: h2 dial timeout: %w", dialCtx.Err())
	}

	if resp.StatusCode != http.StatusOK {
		connCancel()
		resp.Body.Close()
		pipeWriter.Close()
		return nil, fmt.Errorf("transport: h2 dial: status %d", resp.StatusCode)
	}

	return &h2Carrier{
		reader: resp.Body,
		writer: pipeWriter,
		cancel: connCancel,
	}, nil
}

type h2Carrier struct {
	reader  io.ReadCloser
	writer  io.WriteCloser
	cancel  context.CancelFunc
	writeMu sync.Mutex
}

func (c *h2Carrier) Send(ctx context.Context, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := c.writer.Write(header[:]); err != nil {
		return fmt.Errorf("transport: h2 write length: %w", err)
	}
	if _, err := c.writer.Write(frame); err != nil {
		return fmt.Errorf("transport: h2 write frame: %w", err)
	}
	return nil
}

func (c *h2Carrier) Recv(ctx context.Context) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.reader, header[:]); err != nil {
		return nil, fmt.Errorf("transport: h2 read length: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("transport: h2 frame length %d exceeds %d byte limit", n, maxFrameSize)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(c.reader, frame); err != nil {
		return nil, fmt.Errorf("transport: h2 read frame: %w", err)
	}
	return frame, nil
}

func (c *h2Carrier) Close() error {
	c.cancel()
	werr := c.writer.Close()
	rerr := c.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func (c *h2Carrier) Kind() Kind { return KindHTTP2 }
