package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/app"
)

var checkTimeoutFlag time.Duration

// checkCmd validates configuration end to end without starting the server.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate config and fetch every active container once",
	Long: `Load configuration and the policy file, ping the Docker daemon and run a
single bulk fetch over every active container, printing one line per
container. Exits non-zero when the daemon cannot be reached.

Examples:
  ddc-status check
  ddc-status check --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, checkTimeoutFlag)
		defer cancel()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Check(ctx, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().DurationVar(&checkTimeoutFlag, "timeout", time.Minute, "Overall time limit for the check")
}
