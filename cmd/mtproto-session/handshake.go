package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/postalsys/mtproto-session/internal/blobstore"
	"github.com/postalsys/mtproto-session/internal/mtconfig"
	"github.com/postalsys/mtproto-session/internal/mtlog"
	"github.com/postalsys/mtproto-session/internal/mtmetrics"
	"github.com/postalsys/mtproto-session/internal/mtproto/auth"
	"github.com/postalsys/mtproto-session/internal/mtproto/dcaddr"
	"github.com/postalsys/mtproto-session/internal/mtproto/session"
	"github.com/postalsys/mtproto-session/internal/sessionid"
	"github.com/postalsys/mtproto-session/internal/transport"
	"github.com/spf13/cobra"
)

func handshakeCmd() *cobra.Command {
	var configPath string
	var dataDir string

	cmd := &cobra.Command{
		Use:   "handshake",
		Short: "Run the authorization handshake against a datacenter",
		Long: `Dials the configured datacenter over the configured transport,
runs the MTProto 2.0 authorization handshake to completion, and, if
persistence is configured, writes the resulting session blob to disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := mtlog.NewLogger(cfg.Log.Level, cfg.Log.Format)
			metrics := mtmetrics.Default()

			result, carrier, addr, err := runHandshake(cmd.Context(), cfg, logger, metrics)
			if err != nil {
				return err
			}
			defer carrier.Close()

			logger.Info("handshake complete",
				"dc", result.ServerDC,
				"time_offset", result.TimeOffset)

			if cfg.Persistence.Path == "" {
				return nil
			}

			sid, _, err := sessionid.LoadOrCreate(dataDir)
			if err != nil {
				return fmt.Errorf("load session id: %w", err)
			}

			ip, port, err := splitHostPort(addr)
			if err != nil {
				// Fall back to a zero address; the carrier already
				// proved the handshake reached the right host, and
				// DCInfo is advisory metadata carried in the snapshot.
				logger.Warn("could not record dc address in snapshot", "error", err)
			}

			sess := session.New(result.AuthKey, result.FirstSalt, result.TimeOffset, nowNanos,
				session.WithSessionID(sid.Uint64()),
				session.WithDCInfo(result.ServerDC, ip, port))

			if err := blobstore.Save(cfg.Persistence.Path, sess.Snapshot(), cfg.Persistence.Passphrase); err != nil {
				return fmt.Errorf("save session blob: %w", err)
			}
			logger.Info("session blob saved", "path", cfg.Persistence.Path)

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory holding the local session identifier")

	return cmd
}

func nowNanos() int64 { return time.Now().UnixNano() }

func splitHostPort(addr string) ([16]byte, uint16, error) {
	var out [16]byte
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return out, 0, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return out, 0, fmt.Errorf("invalid host %q", host)
	}
	copy(out[:], ip.To16())

	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return out, 0, err
	}
	return out, uint16(port), nil
}

// runHandshake dials a carrier and drives auth.Authorize over it,
// returning both the handshake result and the still-open carrier so the
// caller can keep using it (the `run` command) or close it immediately
// (the `handshake` command).
func runHandshake(ctx context.Context, cfg *mtconfig.Config, logger *slog.Logger, metrics *mtmetrics.Metrics) (auth.Result, transport.Carrier, string, error) {
	addr, err := dcaddr.Resolve(cfg.DC.ID, cfg.DC.Test, cfg.DC.Address)
	if err != nil {
		return auth.Result{}, nil, "", err
	}

	metrics.RecordCarrierDial(cfg.Transport.Kind)
	carrier, err := dialCarrier(ctx, cfg)
	if err != nil {
		metrics.RecordCarrierDialError(cfg.Transport.Kind)
		return auth.Result{}, nil, "", err
	}
	metrics.RecordCarrierConnected()
	logger.Info("dialed datacenter", "addr", addr, "transport", cfg.Transport.Kind)

	send := func(frame []byte) error {
		return carrier.Send(ctx, frame)
	}
	recv := func() ([]byte, error) {
		return carrier.Recv(ctx)
	}

	start := time.Now()
	result, err := auth.Authorize(send, recv, auth.WithDCID(cfg.DC.ID))
	if err != nil {
		metrics.RecordHandshakeError(handshakeErrorType(err))
		carrier.Close()
		metrics.RecordCarrierDisconnected()
		return auth.Result{}, nil, "", fmt.Errorf("handshake: %w", err)
	}
	metrics.RecordHandshake(time.Since(start).Seconds(), 0)

	return result, carrier, addr, nil
}

func handshakeErrorType(err error) string {
	if err == nil {
		return "none"
	}
	return "protocol"
}
