package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/version"
)

var versionCmd = newVersionCmd()

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash and build date of ddc-status.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				cmd.Println(formatVersion(version.Version))
				return
			}

			cmd.Printf("ddc-status %s\n", formatVersion(version.Version))
			cmd.Printf("commit: %s\n", version.Commit)
			cmd.Printf("built: %s\n", version.BuildDate)
			cmd.Printf("go: %s\n", version.GoVersion)
			cmd.Printf("os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// formatVersion ensures version has a 'v' prefix for display
func formatVersion(v string) string {
	if v == "" || v == "dev" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// SetVersionInfo sets the build information (called from main). Empty values
// keep the defaults.
func SetVersionInfo(v, c, d string) {
	if v != "" {
		version.Version = v
	}
	if c != "" {
		version.Commit = c
	}
	if d != "" {
		version.BuildDate = d
	}
}
