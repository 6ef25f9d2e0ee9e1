package cli

import (
	"github.com/spf13/cobra"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/app"
)

// serveCmd runs the engine until SIGINT or SIGTERM.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the status engine and HTTP API",
	Long: `Load the policy file, start the background refresher and garbage
collector and serve the status API until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command) error {
	a, err := app.New(cmd.Context())
	if err != nil {
		return err
	}
	return a.Run()
}
