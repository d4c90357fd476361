package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid-labs/rowgen/internal/config"
)

// loadConfig resolves the --config flag shared by every subcommand: an
// explicit path must exist, an omitted path falls back to config.Default()
// unless ./rowgend.toml happens to exist.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = "rowgend.toml"
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}
