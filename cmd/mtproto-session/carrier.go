package main

import (
	"context"
	"fmt"
	"time"

	"github.com/postalsys/mtproto-session/internal/mtconfig"
	"github.com/postalsys/mtproto-session/internal/mtproto/dcaddr"
	"github.com/postalsys/mtproto-session/internal/transport"
)

// dialCarrier resolves the configured datacenter address and dials it
// with the transport kind cfg.Transport names.
func dialCarrier(ctx context.Context, cfg *mtconfig.Config) (transport.Carrier, error) {
	addr, err := dcaddr.Resolve(cfg.DC.ID, cfg.DC.Test, cfg.DC.Address)
	if err != nil {
		return nil, err
	}

	opts := transport.DefaultDialOptions()
	opts.Timeout = 15 * time.Second
	opts.Path = cfg.Transport.WSPath

	var dialer transport.Dialer
	switch cfg.Transport.Kind {
	case "tcp":
		dialer = transport.NewTCPDialer()
		if cfg.Transport.InsecureSkipVerify {
			tlsConfig, err := transport.NewClientTLSConfig("", true, nil)
			if err != nil {
				return nil, err
			}
			opts.TLSConfig = tlsConfig
		}
	case "ws":
		dialer = transport.NewWebSocketDialer()
		tlsConfig, err := transport.NewClientTLSConfig("", cfg.Transport.InsecureSkipVerify, nil)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
	case "quic":
		dialer = transport.NewQUICDialer()
		tlsConfig, err := transport.NewClientTLSConfig("", cfg.Transport.InsecureSkipVerify, nil)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
	case "h2":
		dialer = transport.NewHTTP2Dialer()
		tlsConfig, err := transport.NewClientTLSConfig("", cfg.Transport.InsecureSkipVerify, nil)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}

	carrier, err := dialer.Dial(ctx, addr, opts)
	if err != nil {
		return nil, fmt.Errorf("dial %s over %s: %w", addr, cfg.Transport.Kind, err)
	}
	return carrier, nil
}
