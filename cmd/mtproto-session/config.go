package main

import (
	"os"

	"github.com/postalsys/mtproto-session/internal/mtconfig"
)

// loadConfig loads path if it exists, falling back to mtconfig.Default
// when path is empty or missing so the CLI works against a bare DC id
// flag with no config file at all.
func loadConfig(path string) (*mtconfig.Config, error) {
	if path == "" {
		return mtconfig.Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return mtconfig.Default(), nil
	}
	return mtconfig.Load(path)
}
