package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/petems/focusmeter/internal/config"
	"github.com/petems/focusmeter/internal/logging"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, TitleStyle.Render("focusmeter 🎧"))
		printKV(w, "Version", Version)
		printKV(w, "Commit", Commit)
		if IsVerbose() {
			printKV(w, "Go", runtime.Version())
			printKV(w, "Config", config.Path())
			printKV(w, "Settings", config.SettingsPath())
			printKV(w, "Log", logging.Path())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
