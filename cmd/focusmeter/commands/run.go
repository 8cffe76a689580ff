package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petems/focusmeter/internal/audio"
	"github.com/petems/focusmeter/internal/engine"
	"github.com/petems/focusmeter/internal/meter"
	"github.com/petems/focusmeter/internal/permissions"
	"github.com/petems/focusmeter/internal/settings"
	"github.com/petems/focusmeter/internal/tray"
)

var (
	runTray   bool
	runDevice string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor the microphone and score every 30 s slice",
	Long: `Monitor the microphone until interrupted.

Without --tray each finished slice is printed to the terminal. With --tray
the current score is shown in the menu bar and the tray menu offers
start/stop, calibration and copying the last slice.

Slices are stored in the history database and kept for 14 days.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if runDevice != "" {
			cfg.Audio.DeviceID = runDevice
		}
		log := newLogger(cfg)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		hist, err := openHistory(cfg, log)
		if err != nil {
			return err
		}
		defer hist.close()

		holder, err := loadSettings(log)
		if err != nil {
			return err
		}

		capture, err := audio.New(log)
		if err != nil {
			return err
		}
		defer capture.Close()

		e := engine.New(engine.Config{
			Capture:      capture,
			History:      hist.store,
			Settings:     holder,
			Audio:        cfg.Audio,
			WarmupFrames: cfg.WarmupFrames,
			Logger:       log,
			Permissions:  permissions.EnsureMicrophone,
		})
		unsubscribe := holder.Subscribe(e.ApplySettings)
		defer unsubscribe()

		go func() {
			if err := holder.Watch(ctx); err != nil {
				log.Warn().Err(err).Msg("Settings watcher stopped")
			}
		}()

		// Setup shutdown signal handling
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		log.Info().Str("version", Version).Msg("focusmeter starting...")

		if runTray || cfg.Tray.Enabled {
			trayUI := tray.New(e, holder, cfg, log, Version, Commit)
			defer e.Subscribe(trayUI)()

			go func() {
				<-sigChan
				log.Info().Msg("Shutting down...")
				trayUI.Quit()
			}()

			// Start tray UI - MUST run on main thread
			return trayUI.Run(ctx)
		}

		printer := newSlicePrinter(cmd.OutOrStdout(), holder)
		defer e.Subscribe(printer)()

		if err := e.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render("focusmeter 🎧 listening, Ctrl+C to stop"))

		<-sigChan
		log.Info().Msg("Shutting down...")
		e.Stop()
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTray, "tray", false, "show the score in the menu bar")
	runCmd.Flags().StringVar(&runDevice, "device", "", "input device name (see 'focusmeter devices')")
	rootCmd.AddCommand(runCmd)
}

// slicePrinter writes finished slices, and optionally the live level, to a
// terminal.
type slicePrinter struct {
	w        io.Writer
	settings settingsSource

	mu        sync.Mutex
	lastLevel time.Time
	status    engine.Status
}

type settingsSource interface {
	Current() settings.ControlSettings
}

func newSlicePrinter(w io.Writer, holder settingsSource) *slicePrinter {
	return &slicePrinter{w: w, settings: holder}
}

func (p *slicePrinter) OnSnapshot(s engine.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Status != p.status {
		p.status = s.Status
		if s.Error != "" {
			fmt.Fprintf(p.w, "%s %s\n", ErrorStyle.Render(s.Status.String()+":"), s.Error)
		}
	}

	if !p.settings.Current().ShowRealtime || s.Status != engine.StatusRunning || len(s.Realtime) == 0 {
		return
	}
	now := s.Realtime[len(s.Realtime)-1].Timestamp
	if now.Sub(p.lastLevel) < time.Second {
		return
	}
	p.lastLevel = now
	fmt.Fprintf(p.w, "%s level %5.1f dBFS  display %5.1f  interim %s  frames %d\n",
		KeyStyle.Render(now.Local().Format("15:04:05")),
		s.Level, s.DisplayLevel,
		scoreStyle(s.InterimScore).Render(fmt.Sprintf("%5.1f", s.InterimScore)),
		s.WindowFrames)
}

func (p *slicePrinter) OnSlice(s meter.SliceSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	writeSliceRow(p.w, s)
	if p.settings.Current().ShowBreakdown {
		writeBreakdown(p.w, s.Breakdown)
	}
}
