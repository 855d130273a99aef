package main

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/postalsys/mtproto-session/internal/blobstore"
	"github.com/postalsys/mtproto-session/internal/certutil"
	"github.com/postalsys/mtproto-session/internal/mtproto/session"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect certificates and session blobs",
	}

	cmd.AddCommand(inspectCertCmd())
	cmd.AddCommand(inspectSessionCmd())

	return cmd
}

func inspectCertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert <certificate-file>",
		Short: "Print certificate details and its pinning fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read certificate: %w", err)
			}
			block, _ := pem.Decode(data)
			if block == nil {
				return fmt.Errorf("decode PEM: no certificate block found")
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return fmt.Errorf("parse certificate: %w", err)
			}

			info := certutil.GetCertInfo(cert)
			fmt.Printf("Subject:      %s\n", info.Subject)
			fmt.Printf("Issuer:       %s\n", info.Issuer)
			fmt.Printf("Serial:       %s\n", info.SerialNumber)
			fmt.Printf("Not before:   %s\n", info.NotBefore)
			fmt.Printf("Not after:    %s\n", info.NotAfter)
			fmt.Printf("Fingerprint:  %s\n", info.Fingerprint)
			if len(info.DNSNames) > 0 {
				fmt.Printf("DNS names:    %v\n", info.DNSNames)
			}
			if len(info.IPAddresses) > 0 {
				fmt.Printf("IP addresses: %v\n", info.IPAddresses)
			}
			if certutil.IsExpired(cert) {
				fmt.Println("Status:       EXPIRED")
			} else if certutil.IsExpiringSoon(cert, expiringSoonWindow) {
				fmt.Println("Status:       expiring soon")
			}

			return nil
		},
	}

	return cmd
}

func inspectSessionCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "session <blob-path>",
		Short: "Print the session ID, salt, time offset, and counters of a persisted session blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := blobstore.Load(args[0], passphrase)
			if err != nil {
				return fmt.Errorf("load session blob: %w", err)
			}

			sess, err := session.Restore(blob, nowNanos)
			if err != nil {
				return fmt.Errorf("restore session: %w", err)
			}

			fmt.Printf("Session ID:   %d\n", sess.SessionID())
			fmt.Printf("Salt:         %d\n", sess.Salt())
			fmt.Printf("Time offset:  %ds\n", sess.TimeOffset())
			fmt.Printf("Last msg_id:  %d\n", sess.LastMsgID())
			fmt.Printf("Content ctr:  %d\n", sess.ContentCounter())

			return nil
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase, if the blob is protected")

	return cmd
}

const expiringSoonWindow = 30 * 24 * time.Hour
