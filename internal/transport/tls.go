package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	"github.com/postalsys/mtproto-session/internal/certutil"
)

// DefaultWSSubprotocol is the WebSocket subprotocol MTProto-over-WS
// clients negotiate.
const DefaultWSSubprotocol = "binary"

// NewClientTLSConfig builds a TLS config for dialing a real datacenter
// endpoint. Unlike a peer-to-peer mesh transport, MTProto carriers speak
// to a fixed, publicly-verifiable Telegram endpoint, so certificate
// verification stays on by default; insecureSkipVerify exists only for
// talking to local test fixtures.
func NewClientTLSConfig(caFile string, insecureSkipVerify bool, nextProtos []string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS13,
		NextProtos:         nextProtos,
		InsecureSkipVerify: insecureSkipVerify,
	}

	if caFile != "" {
		pool, err := loadCAPool(caFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func loadCAPool(caFile string) (*x509.CertPool, error) {
	pool, err := certutil.CreateCertPoolFromFiles(caFile)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	return pool, nil
}

// ensureALPN returns a clone of cfg with proto prepended to NextProtos
// if not already present.
func ensureALPN(cfg *tls.Config, proto string) *tls.Config {
	clone := cfg.Clone()
	for _, p := range clone.NextProtos {
		if p == proto {
			return clone
		}
	}
	clone.NextProtos = append([]string{proto}, clone.NextProtos...)
	return clone
}

// upgradeTLS performs a client TLS handshake over an already-dialed
// net.Conn, used by the tcp carrier when DialOptions.TLSConfig is set
// (the wss/h2 carriers negotiate TLS as part of their own dial instead).
func upgradeTLS(ctx context.Context, conn net.Conn, cfg *tls.Config) (net.Conn, error) {
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("transport: tls handshake: %w", err)
	}
	return tlsConn, nil
}
