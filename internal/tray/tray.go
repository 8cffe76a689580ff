package tray

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/focusmeter/internal/config"
	"github.com/petems/focusmeter/internal/engine"
	"github.com/petems/focusmeter/internal/logging"
	"github.com/petems/focusmeter/internal/meter"
	"github.com/petems/focusmeter/internal/settings"
)

// calibrationTargets are the display levels offered in the Calibrate menu.
var calibrationTargets = []float64{30, 40, 50}

type UI struct {
	engine   *engine.Engine
	settings *settings.Holder
	cfg      *config.Config
	version  string
	commit   string
	log      zerolog.Logger
	ctx      context.Context

	mu        sync.Mutex
	title     string
	status    string
	lastSlice *meter.SliceSummary

	// Menu items
	mStartStop *systray.MenuItem
	mStatus    *systray.MenuItem
	mLast      *systray.MenuItem
	mCopy      *systray.MenuItem
}

func New(e *engine.Engine, holder *settings.Holder, cfg *config.Config, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		engine:   e,
		settings: holder,
		cfg:      cfg,
		version:  version,
		commit:   commit,
		log:      log,
	}
}

// OnSnapshot updates the tray title and status line. Called from the
// engine loop.
func (u *UI) OnSnapshot(s engine.Snapshot) {
	title, status := formatTitle(s), statusLine(s)

	u.mu.Lock()
	titleChanged, statusChanged := u.remember(title, status)
	ready := u.mStartStop != nil
	u.mu.Unlock()

	if !ready {
		return
	}
	if statusChanged {
		u.mStatus.SetTitle(status)
	}
	if !titleChanged {
		return
	}
	systray.SetTitle(title)
	if s.Status == engine.StatusRunning {
		u.mStartStop.SetTitle("Stop Monitoring")
	} else {
		u.mStartStop.SetTitle("Start Monitoring")
	}
}

// remember stores the rendered title and status line and reports which of
// them differ from the previous snapshot. Callers hold mu.
func (u *UI) remember(title, status string) (titleChanged, statusChanged bool) {
	titleChanged = title != u.title
	statusChanged = status != u.status
	u.title = title
	u.status = status
	return titleChanged, statusChanged
}

// OnSlice remembers the finished slice for the menu.
func (u *UI) OnSlice(s meter.SliceSummary) {
	u.mu.Lock()
	u.lastSlice = &s
	ready := u.mLast != nil
	u.mu.Unlock()

	if ready {
		u.mLast.SetTitle(sliceLine(s))
		u.mCopy.Enable()
	}
}

func (u *UI) Run(ctx context.Context) error {
	u.ctx = ctx
	systray.Run(u.onReady, u.onExit)
	return nil
}

// Quit closes the tray, which makes Run return.
func (u *UI) Quit() {
	systray.Quit()
}

func (u *UI) onReady() {
	systray.SetTitle(formatTitle(u.engine.Snapshot()))
	systray.SetTooltip("Ambient noise focus meter")

	// Build menu
	mStatus := systray.AddMenuItem(statusLine(u.engine.Snapshot()), "Current state")
	mStatus.Disable()
	mLast := systray.AddMenuItem("No slices yet", "Most recent 30 s slice")
	mLast.Disable()
	systray.AddSeparator()

	mStartStop := systray.AddMenuItem("Start Monitoring", "Start or stop the microphone")
	mCalibrate := systray.AddMenuItem("Calibrate", "Map the current room level to a display level")
	u.buildCalibrateMenu(mCalibrate)

	systray.AddSeparator()
	mCopy := systray.AddMenuItem("Copy Last Slice", "Copy the last slice as JSON")
	mCopy.Disable()
	mReset := systray.AddMenuItem("Reset Settings", "Restore default display settings")
	mLogs := systray.AddMenuItem("Show Log Path", "Print the log file location")
	mAbout := systray.AddMenuItem("About", "About focusmeter")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.mStartStop = mStartStop
	u.mStatus = mStatus
	u.mLast = mLast
	u.mCopy = mCopy
	u.mu.Unlock()

	if u.cfg.Tray.AutoStart {
		go u.toggleMonitoring()
	}

	// Event loop
	go u.handleEvents(mReset, mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mReset, mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			u.toggleMonitoring()
		case <-u.mCopy.ClickedCh:
			u.copyLastSlice()
		case <-mReset.ClickedCh:
			u.resetSettings()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildCalibrateMenu(parent *systray.MenuItem) {
	for _, target := range calibrationTargets {
		item := parent.AddSubMenuItem(fmt.Sprintf("Current level reads %.0f", target), "")

		go func(target float64, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				if err := u.engine.Calibrate(target); err != nil {
					u.log.Warn().Err(err).Float64("target", target).Msg("Cannot calibrate")
					continue
				}
				u.log.Info().Float64("target", target).Msg("Calibrating, keep the room at its usual level")
			}
		}(target, item)
	}
}

func (u *UI) toggleMonitoring() {
	if u.engine.IsRunning() {
		u.engine.Stop()
		return
	}
	ctx := u.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := u.engine.Start(ctx); err != nil {
		u.log.Error().Err(err).Msg("Failed to start monitoring")
	}
}

func (u *UI) copyLastSlice() {
	u.mu.Lock()
	last := u.lastSlice
	u.mu.Unlock()
	if last == nil {
		return
	}

	data, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to encode slice")
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy slice to clipboard")
		return
	}
	u.log.Info().Str("id", last.ID).Msg("Copied slice to clipboard")
}

func (u *UI) resetSettings() {
	if u.settings == nil {
		return
	}
	if _, err := u.settings.Reset(); err != nil {
		u.log.Error().Err(err).Msg("Failed to reset settings")
		return
	}
	u.log.Info().Msg("Settings reset to defaults")
}

func (u *UI) openLogs() {
	fmt.Println(logging.Path())
}

func (u *UI) showAbout() {
	fmt.Printf("focusmeter %s (%s)\nAmbient noise focus meter\n", u.version, u.commit)
}

func (u *UI) onExit() {
	u.engine.Stop()
}

// formatTitle renders the tray title: status emoji and the interim score.
func formatTitle(s engine.Snapshot) string {
	emoji := emojiForStatus(s.Status, s.Calibrating)
	if s.Status != engine.StatusRunning {
		return fmt.Sprintf("🎧 %s", emoji)
	}
	return fmt.Sprintf("🎧 %s %.1f", emoji, s.InterimScore)
}

func statusLine(s engine.Snapshot) string {
	switch {
	case s.Calibrating:
		return "Calibrating…"
	case s.Status == engine.StatusRunning:
		return fmt.Sprintf("Listening · %.0f", s.DisplayLevel)
	case s.Error != "":
		return fmt.Sprintf("%s: %s", s.Status, s.Error)
	default:
		return "Idle"
	}
}

func sliceLine(s meter.SliceSummary) string {
	return fmt.Sprintf("Last: %.1f at %s", s.Score, s.End.Local().Format("15:04:05"))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status engine.Status, calibrating bool) string {
	if calibrating {
		return "🟡" // Yellow - calibrating
	}
	switch status {
	case engine.StatusRunning:
		return "🟢" // Green - listening
	case engine.StatusDenied:
		return "🔴" // Red - no microphone access
	case engine.StatusError:
		return "⚪️" // White - error
	default:
		return "⚫️" // Black - idle
	}
}
