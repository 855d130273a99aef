// Package main provides the CLI entry point for the MTProto session core.
package main

import (
	"fmt"
	"os"

	"github.com/postalsys/mtproto-session/internal/sysinfo"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time via ldflags.
	Version = "dev"
)

func init() {
	if Version == "dev" {
		Version = sysinfo.Version
	} else {
		sysinfo.Version = Version
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mtproto-session",
		Short: "MTProto 2.0 session core",
		Long: `mtproto-session drives the MTProto 2.0 authorization handshake and
encrypted session against a Telegram datacenter, over a choice of
transport carriers (tcp, ws, quic, h2).

It is a session core, not a full client: it authorizes, packs and
unpacks wire frames, and tracks salts and time offset, leaving the
Telegram API layer itself to the host application.`,
		Version: Version,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "start", Title: "Getting Started:"})
	rootCmd.AddGroup(&cobra.Group{ID: "inspect", Title: "Inspection:"})

	setup := setupCmd()
	setup.GroupID = "start"
	rootCmd.AddCommand(setup)

	handshake := handshakeCmd()
	handshake.GroupID = "start"
	rootCmd.AddCommand(handshake)

	run := runCmd()
	run.GroupID = "start"
	rootCmd.AddCommand(run)

	inspect := inspectCmd()
	inspect.GroupID = "inspect"
	rootCmd.AddCommand(inspect)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
