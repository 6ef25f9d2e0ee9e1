// Package cli is the ddc-status command line: serve runs the status engine,
// check runs a single fetch pass, version prints build information.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ddc-status",
	Short: "Container status engine for the DDC dashboard",
	Long: `ddc-status polls the Docker daemon for the containers listed in the
policy file, caches their status in two tiers and serves it over HTTP.

Configuration is read from DDC_* environment variables.

Examples:
  ddc-status            # same as "ddc-status serve"
  ddc-status check
  ddc-status version --short`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ ddc-status: %v\n", err)
		os.Exit(1)
	}
}
