package cmd

import (
	"fmt"
	"strings"

	"soundboard/playback"

	"github.com/spf13/cobra"
)

var (
	// Version information, set during build
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, git commit, build date and supported audio formats for soundboard.",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "soundboard version %s\n", Version)
		fmt.Fprintf(w, "Git commit: %s\n", GitCommit)
		fmt.Fprintf(w, "Built: %s\n", BuildDate)
		fmt.Fprintf(w, "Formats: %s\n", strings.Join(playback.Extensions(), " "))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
