package main

import (
	"fmt"
	"os"

	"github.com/postalsys/mtproto-session/internal/wizard"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func setupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Run an interactive wizard that picks a datacenter, a transport
carrier, TLS verification mode, and an optional passphrase protecting
the persisted session blob, then writes the result to a config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("setup requires an interactive terminal; write a config file by hand instead")
			}

			w := wizard.New()
			if configPath != "" {
				if err := w.LoadExisting(configPath); err != nil {
					return fmt.Errorf("load existing config: %w", err)
				}
			}

			if _, err := w.Run(); err != nil {
				return fmt.Errorf("setup wizard: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Existing config file to use as defaults")

	return cmd
}
