// Command rowgend is the Go-native realization of spec.md §6's command
// surface: in the original Tauri app these were IPC commands invoked from
// the desktop UI; here they're cobra subcommands plus the HTTP/WebSocket
// surface `serve` exposes, grounded on the teacher pack's smf CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rowgend",
		Short: "Row-generation engine: drives a local LLM column-by-column to synthesize tabular datasets",
	}
	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file (defaults if omitted)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(cancelCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
