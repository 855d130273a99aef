package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/postalsys/mtproto-session/internal/blobstore"
	"github.com/postalsys/mtproto-session/internal/mtconfig"
	"github.com/postalsys/mtproto-session/internal/mtlog"
	"github.com/postalsys/mtproto-session/internal/mtmetrics"
	"github.com/postalsys/mtproto-session/internal/mtproto/cryptoprim"
	"github.com/postalsys/mtproto-session/internal/mtproto/service"
	"github.com/postalsys/mtproto-session/internal/mtproto/session"
	"github.com/postalsys/mtproto-session/internal/recovery"
	"github.com/postalsys/mtproto-session/internal/sessionid"
	"github.com/postalsys/mtproto-session/internal/transport"
	"github.com/spf13/cobra"
)

const pingInterval = 60 * time.Second

func runCmd() *cobra.Command {
	var configPath string
	var dataDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Handshake, then keep the session open until interrupted",
		Long: `Runs the authorization handshake (or restores a persisted session
blob) and then keeps the connection open, sending keepalive pings and
dispatching incoming frames, until interrupted. On shutdown the session
state is persisted if a persistence path is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := mtlog.NewLogger(cfg.Log.Level, cfg.Log.Format)
			metrics := mtmetrics.Default()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sess, carrier, err := openSession(ctx, cfg, logger, metrics, dataDir)
			if err != nil {
				return err
			}
			defer carrier.Close()

			var wg sync.WaitGroup
			wg.Add(2)
			go readLoop(ctx, &wg, carrier, sess, logger, metrics)
			go pingLoop(ctx, &wg, carrier, sess, logger)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("received signal, shutting down", "signal", sig.String())
			case <-ctx.Done():
				logger.Info("context canceled, shutting down")
			}

			cancel()
			carrier.Close()
			wg.Wait()

			if cfg.Persistence.Path != "" {
				if err := blobstore.Save(cfg.Persistence.Path, sess.Snapshot(), cfg.Persistence.Passphrase); err != nil {
					return fmt.Errorf("save session blob: %w", err)
				}
				logger.Info("session blob saved", "path", cfg.Persistence.Path)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory holding the local session identifier")

	return cmd
}

// openSession restores a persisted session blob if one exists, or runs
// the handshake fresh otherwise.
func openSession(ctx context.Context, cfg *mtconfig.Config, logger *slog.Logger, metrics *mtmetrics.Metrics, dataDir string) (*session.EncryptedSession, transport.Carrier, error) {
	if cfg.Persistence.Path != "" && blobstore.Exists(cfg.Persistence.Path) {
		blob, err := blobstore.Load(cfg.Persistence.Path, cfg.Persistence.Passphrase)
		if err == nil {
			sess, err := session.Restore(blob, nowNanos)
			if err == nil {
				metrics.RecordCarrierDial(cfg.Transport.Kind)
				carrier, dialErr := dialCarrier(ctx, cfg)
				if dialErr == nil {
					metrics.RecordCarrierConnected()
					logger.Info("restored session from blob", "path", cfg.Persistence.Path)
					return sess, carrier, nil
				}
				metrics.RecordCarrierDialError(cfg.Transport.Kind)
				logger.Warn("restored blob but dial failed, re-handshaking", "error", dialErr)
			} else {
				logger.Warn("could not restore session blob, re-handshaking", "error", err)
			}
		} else {
			logger.Warn("could not load session blob, re-handshaking", "error", err)
		}
		metrics.RecordSessionReopened()
	}

	result, carrier, addr, err := runHandshake(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, nil, err
	}

	sid, _, err := sessionid.LoadOrCreate(dataDir)
	if err != nil {
		carrier.Close()
		return nil, nil, fmt.Errorf("load session id: %w", err)
	}

	ip, port, err := splitHostPort(addr)
	if err != nil {
		logger.Warn("could not record dc address in snapshot", "error", err)
	}

	sess := session.New(result.AuthKey, result.FirstSalt, result.TimeOffset, nowNanos,
		session.WithSessionID(sid.Uint64()),
		session.WithDCInfo(result.ServerDC, ip, port))

	return sess, carrier, nil
}

func readLoop(ctx context.Context, wg *sync.WaitGroup, carrier transport.Carrier, sess *session.EncryptedSession, logger *slog.Logger, metrics *mtmetrics.Metrics) {
	defer wg.Done()
	defer recovery.RecoverWithLog(logger, "carrier-read-loop")

	handler := service.New(sess)

	for {
		frame, err := carrier.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("carrier recv failed", "error", err)
			return
		}
		metrics.RecordFrameUnpacked(len(frame))

		msg, err := sess.Unpack(frame)
		if err != nil {
			metrics.RecordFrameDecodeError("unpack")
			logger.Warn("dropping unreadable frame", "error", err)
			continue
		}

		deliveries, err := handler.Dispatch(msg.MsgID, msg.SeqNo, msg.Body)
		if err != nil {
			metrics.RecordFrameDecodeError("dispatch")
			logger.Warn("dropping undispatchable message", "msg_id", msg.MsgID, "error", err)
			continue
		}

		var ackIDs []uint64
		for _, d := range deliveries {
			logger.Debug("delivery", "kind", d.Kind.String(), "msg_id", d.MsgID)
			switch d.Kind {
			case service.KindBadServerSalt:
				metrics.RecordSaltCorrection("bad_server_salt")
			case service.KindNewSessionCreated:
				metrics.RecordSaltCorrection("new_session_created")
			}
			if d.MsgID != 0 {
				ackIDs = append(ackIDs, d.MsgID)
			}
		}

		if len(ackIDs) == 0 {
			continue
		}
		ackFrame, err := sess.Pack(session.BuildAck(ackIDs), false)
		if err != nil {
			logger.Warn("could not pack ack", "error", err)
			continue
		}
		if err := carrier.Send(ctx, ackFrame); err != nil {
			logger.Warn("could not send ack", "error", err)
			return
		}
		metrics.RecordFramePacked(len(ackFrame))
	}
}

func pingLoop(ctx context.Context, wg *sync.WaitGroup, carrier transport.Carrier, sess *session.EncryptedSession, logger *slog.Logger) {
	defer wg.Done()
	defer recovery.RecoverWithLog(logger, "carrier-ping-loop")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingID := cryptoprim.DefaultRandom.Uint64()
			frame, err := sess.Pack(session.BuildPing(pingID), false)
			if err != nil {
				logger.Warn("could not pack ping", "error", err)
				continue
			}
			if err := carrier.Send(ctx, frame); err != nil {
				logger.Warn("could not send ping", "error", err)
				return
			}
		}
	}
}
