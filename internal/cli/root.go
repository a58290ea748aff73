// Package cli implements the kibitz command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the persistent --config flag shared by all subcommands.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "kibitz",
	Short: "kibitz is a chess position analysis service",
	Long: `kibitz runs UCI chess engines behind an HTTP API: synchronous batch
evaluation, asynchronous analyses with progress streaming over SSE, and a
one-shot local evaluation mode for scripting.

Configuration comes from defaults, an optional YAML file (--config), and
KIBITZ_* environment variables, in that order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
}
