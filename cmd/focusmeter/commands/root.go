package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/focusmeter/internal/config"
	"github.com/petems/focusmeter/internal/logging"
)

var (
	// Global flags
	verbose bool

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "focusmeter",
	Short: "Ambient noise focus meter",
	Long: `focusmeter - scores how disruptive the room noise is for focused work.

The microphone level is sampled every 50 ms. Every 30 s a slice is scored
from 0 (constant disruption) to 100 (quiet) and stored locally for 14 days.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/focusmeter/
  Linux:   ~/.config/focusmeter/
  Windows: %AppData%/focusmeter/

Examples:
  # Monitor in the terminal
  focusmeter run

  # Monitor from the menu bar
  focusmeter run --tray

  # Show today's slices
  focusmeter history --limit 20`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if configLoadErr != nil {
		return nil, fmt.Errorf("load config %s: %w", config.Path(), configLoadErr)
	}
	if globalConfig == nil {
		return config.Default(), nil
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// newLogger builds the process logger; --verbose forces debug level.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.NewWithLevel(level)
}
