package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/petems/focusmeter/internal/meter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored slices, newest first",
	Long: `Show the stored 30 s slices, newest first.

History is kept for 14 days and capped at 1000 slices. The database is
locked while "focusmeter run" is active.

Examples:
  focusmeter history --limit 10
  focusmeter history --json > slices.json
  focusmeter history --clear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		clearAll, _ := cmd.Flags().GetBool("clear")
		breakdown, _ := cmd.Flags().GetBool("breakdown")

		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		env, err := openHistory(cfg, log)
		if err != nil {
			return err
		}
		defer env.close()

		w := cmd.OutOrStdout()
		if clearAll {
			if err := env.store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintln(w, "History cleared")
			return nil
		}

		slices := env.store.Recent(cmd.Context(), limit)
		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(slices)
		}

		if len(slices) == 0 {
			fmt.Fprintln(w, "No slices recorded yet")
			return nil
		}
		writeSliceHeader(w)
		for _, s := range slices {
			writeSliceRow(w, s)
			if breakdown {
				writeBreakdown(w, s.Breakdown)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 0, "show at most N slices (0 = all)")
	historyCmd.Flags().Bool("json", false, "print JSON")
	historyCmd.Flags().Bool("clear", false, "delete all stored slices")
	historyCmd.Flags().Bool("breakdown", false, "print the score breakdown under every slice")
	rootCmd.AddCommand(historyCmd)
}

func writeSliceHeader(w io.Writer) {
	fmt.Fprintln(w, HeaderStyle.Render(fmt.Sprintf("%-19s  %5s  %7s  %7s  %7s  %4s  %4s",
		"END", "SCORE", "AVG", "P95", "OVER", "SEGS", "GAPS")))
}

func writeSliceRow(w io.Writer, s meter.SliceSummary) {
	fmt.Fprintf(w, "%-19s  %s  %7.1f  %7.1f  %6.1f%%  %4d  %4d\n",
		s.End.Local().Format("2006-01-02 15:04:05"),
		scoreStyle(s.Score).Render(fmt.Sprintf("%5.1f", s.Score)),
		s.Display.AvgDisplayLevel,
		s.Display.P95DisplayLevel,
		s.Raw.OverThresholdRatio*100,
		s.Raw.SegmentCount,
		s.Raw.GapCount)
}

func writeBreakdown(w io.Writer, b meter.ScoreBreakdown) {
	fmt.Fprintf(w, "    %s sustained %.2f  time %.2f  segments %.2f  total %.2f  (median %.1f dBFS, %.1f segs/min, coverage %.0f%%)\n",
		KeyStyle.Render("penalty"),
		b.SustainedPenalty, b.TimePenalty, b.SegmentPenalty, b.TotalPenalty,
		b.MedianLevel, b.SegmentsPerMinute, b.CoverageRatio*100)
}
