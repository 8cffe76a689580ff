package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petems/focusmeter/internal/config"
	"github.com/petems/focusmeter/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change display settings",
	Long: `Show or change the display settings in settings.json.

Only the display calibration and the output toggles can be changed. The
scoring parameters are fixed and always written back as their built-in
values. A running "focusmeter run" picks up changes immediately.

Keys:
  display_baseline_level   display level of the calibration reference (20-100)
  baseline_amplitude       linear amplitude of the reference (0-1]
  show_realtime            print the live level while running (true/false)
  show_breakdown           print the score breakdown for each slice (true/false)`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		holder, err := settingsHolder()
		if err != nil {
			return err
		}
		writeSettings(cmd.OutOrStdout(), holder.Current(), asJSON)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, err := settingsHolder()
		if err != nil {
			return err
		}
		next, err := applySetting(holder.Current(), args[0], args[1])
		if err != nil {
			return err
		}
		saved, err := holder.Save(next)
		if err != nil {
			return err
		}
		writeSettings(cmd.OutOrStdout(), saved, false)
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, err := settingsHolder()
		if err != nil {
			return err
		}
		saved, err := holder.Reset()
		if err != nil {
			return err
		}
		writeSettings(cmd.OutOrStdout(), saved, false)
		return nil
	},
}

func init() {
	settingsShowCmd.Flags().Bool("json", false, "print JSON")
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsHolder() (*settings.Holder, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return loadSettings(newLogger(cfg))
}

// applySetting returns s with key set to the parsed value.
func applySetting(s settings.ControlSettings, key, value string) (settings.ControlSettings, error) {
	switch strings.ToLower(key) {
	case "display_baseline_level":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		s.DisplayBaselineLevel = v
	case "baseline_amplitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		s.BaselineAmplitude = v
	case "show_realtime":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		s.ShowRealtime = v
	case "show_breakdown":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		s.ShowBreakdown = v
	case "window_seconds", "frame_interval_ms", "score_threshold_dbfs", "merge_gap_ms", "max_segments_per_minute":
		return s, fmt.Errorf("%s is fixed and cannot be changed", key)
	default:
		return s, fmt.Errorf("unknown setting %q", key)
	}
	return s, nil
}

func writeSettings(w io.Writer, s settings.ControlSettings, asJSON bool) {
	if asJSON {
		data, _ := json.MarshalIndent(s, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintln(w, TitleStyle.Render("Settings")+KeyStyle.Render("  "+config.SettingsPath()))
	printKV(w, "display_baseline_level", fmt.Sprintf("%.1f", s.DisplayBaselineLevel))
	printKV(w, "baseline_amplitude", fmt.Sprintf("%.6f", s.BaselineAmplitude))
	printKV(w, "show_realtime", s.ShowRealtime)
	printKV(w, "show_breakdown", s.ShowBreakdown)
	fmt.Fprintln(w)
	fmt.Fprintln(w, HeaderStyle.Render("Fixed"))
	printKV(w, "window_seconds", s.WindowSeconds)
	printKV(w, "frame_interval_ms", s.FrameIntervalMs)
	printKV(w, "score_threshold_dbfs", s.ScoreThresholdDBFS)
	printKV(w, "merge_gap_ms", s.MergeGapMs)
	printKV(w, "max_segments_per_minute", s.MaxSegmentsPerMinute)
}
