// Package engine runs the focus meter pipeline: it drains capture blocks,
// turns them into frames, keeps the realtime ring and the current window, and
// hands finished slices to the history store and to listeners.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/focusmeter/internal/audio"
	"github.com/petems/focusmeter/internal/config"
	"github.com/petems/focusmeter/internal/meter"
	"github.com/petems/focusmeter/internal/permissions"
	"github.com/petems/focusmeter/internal/settings"
)

// blockBuffer bounds the capture channel; the capture drops blocks when full.
const blockBuffer = 16

// HistoryStore persists finished slices.
type HistoryStore interface {
	Append(ctx context.Context, s meter.SliceSummary) error
}

// SettingsStore provides the display calibration and receives new
// calibration results.
type SettingsStore interface {
	Current() settings.ControlSettings
	Save(s settings.ControlSettings) (settings.ControlSettings, error)
}

type Config struct {
	Capture      audio.Capture // Optional - nil means the host calls ProcessBlock
	History      HistoryStore  // Optional
	Settings     SettingsStore // Optional
	Audio        config.AudioConfig
	WarmupFrames int
	Logger       zerolog.Logger
	Now          func() time.Time // Optional - defaults to time.Now
	Permissions  func() error     // Optional - checked before every Start
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine owns one monitoring pipeline. All methods are safe for concurrent
// use. Listener callbacks run without the engine lock held and must not
// block or call Stop.
type Engine struct {
	capture     audio.Capture
	history     HistoryStore
	settings    SettingsStore
	audioCfg    config.AudioConfig
	log         zerolog.Logger
	now         func() time.Time
	permissions func() error

	mu           sync.Mutex
	status       Status
	lastErr      error
	session      *session
	frames       *meter.FrameProcessor
	agg          *meter.SliceAggregator
	cal          *meter.Calibrator
	ring         *meter.RingBuffer[meter.RealtimePoint]
	level        float64
	display      float64
	lastSlice    *meter.SliceSummary
	interim      float64
	breakdown    meter.ScoreBreakdown
	interimAt    time.Time
	listeners    map[int]Listener
	nextListener int
}

func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	warmup := cfg.WarmupFrames
	if warmup < 0 {
		warmup = 0
	}

	cal := meter.DefaultCalibration()
	if cfg.Settings != nil {
		cal = cfg.Settings.Current().Calibration()
	}

	return &Engine{
		capture:     cfg.Capture,
		history:     cfg.History,
		settings:    cfg.Settings,
		audioCfg:    cfg.Audio,
		log:         cfg.Logger,
		now:         now,
		permissions: cfg.Permissions,
		status:      StatusIdle,
		frames:      meter.NewFrameProcessor(warmup),
		agg:         meter.NewSliceAggregator(now()),
		cal:         meter.NewCalibrator(cal),
		ring:        meter.NewRingBuffer[meter.RealtimePoint](meter.RealtimeCapacity),
		level:       meter.MinLevel,
		display:     meter.MinDisplayLevel,
		interim:     meter.PerfectScore,
		breakdown:   meter.PerfectBreakdown(),
		listeners:   make(map[int]Listener),
	}
}

// outcome collects everything to publish once the lock is released.
type outcome struct {
	snapshot   Snapshot
	listeners  []Listener
	slice      *meter.SliceSummary
	calibrated *meter.Calibration
}

// Start acquires the capture and begins monitoring. Calling Start while
// running is a no-op. A denied permission or missing device leaves the
// engine in StatusDenied; other failures leave it in StatusError.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.session != nil {
		e.mu.Unlock()
		return nil
	}

	if e.permissions != nil {
		if err := e.permissions(); err != nil {
			out := e.failLocked(StatusDenied, err)
			e.mu.Unlock()
			e.log.Error().Err(err).Msg("Microphone permission not granted")
			e.dispatch(out)
			return err
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{cancel: cancel, done: make(chan struct{})}

	if e.capture != nil {
		blocks := make(chan audio.Block, blockBuffer)
		if err := e.capture.Start(sctx, e.audioCfg, blocks); err != nil {
			cancel()
			status := StatusError
			if errors.Is(err, audio.ErrDeviceUnavailable) || errors.Is(err, permissions.ErrMicrophoneDenied) {
				status = StatusDenied
			}
			out := e.failLocked(status, err)
			e.mu.Unlock()
			e.log.Error().Err(err).Str("status", status.String()).Msg("Failed to start capture")
			e.dispatch(out)
			return fmt.Errorf("start capture: %w", err)
		}
		go e.loop(sctx, s, blocks)
	} else {
		close(s.done)
	}

	start := e.now()
	e.session = s
	e.status = StatusRunning
	e.lastErr = nil
	e.frames.Reset()
	e.agg.Reset(start)
	e.ring.Reset()
	e.level = meter.MinLevel
	e.display = meter.MinDisplayLevel
	e.interim, e.breakdown = e.agg.Interim()
	e.interimAt = time.Time{}
	out := e.publishLocked()
	e.mu.Unlock()

	e.log.Info().Time("window_start", start).Msg("Monitoring started")
	e.dispatch(out)
	return nil
}

func (e *Engine) loop(ctx context.Context, s *session, blocks <-chan audio.Block) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-blocks:
			e.process(s, b)
		}
	}
}

// ProcessBlock feeds one block into the pipeline. Hosts that drive the
// cadence themselves start the engine without a Capture and call this.
// Blocks are ignored unless the engine is running.
func (e *Engine) ProcessBlock(b audio.Block) {
	e.process(nil, b)
}

// process handles one block. A non-nil s drops blocks from a stale session.
func (e *Engine) process(s *session, b audio.Block) {
	e.mu.Lock()
	if e.status != StatusRunning || e.session == nil || (s != nil && e.session != s) {
		e.mu.Unlock()
		return
	}

	ts := b.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	if b.Err != nil {
		out := e.stopLocked(ts, StatusError, b.Err)
		e.mu.Unlock()
		e.log.Error().Err(b.Err).Msg("Capture fault, window finalized")
		e.stopCapture()
		e.dispatch(out)
		return
	}

	f := e.frames.Process(b.Samples, ts)
	cal := e.cal.Current()
	e.level = f.Sample.Level
	e.display = cal.Display(f.Sample.RMS)
	e.ring.Push(meter.RealtimePoint{
		Timestamp:    ts,
		Level:        e.level,
		DisplayLevel: e.display,
	})

	var calibrated *meter.Calibration
	if !f.Warmup && e.cal.State() == meter.CalibrationCollecting {
		c, done, err := e.cal.Observe(f.Sample.RMS, ts)
		switch {
		case done && err != nil:
			e.log.Warn().Err(err).Msg("Calibration aborted")
		case done:
			calibrated = &c
		}
	}

	var slice *meter.SliceSummary
	if !f.Warmup && e.agg.Due(ts) {
		if summary, ok := e.agg.Finalize(ts, e.cal.Current()); ok {
			slice = &summary
			e.lastSlice = slice
		}
		e.interim, e.breakdown = e.agg.Interim()
		e.interimAt = ts
	}
	e.agg.Add(f)

	if e.interimAt.IsZero() || ts.Sub(e.interimAt) >= meter.InterimInterval {
		e.interim, e.breakdown = e.agg.Interim()
		e.interimAt = ts
	}

	out := e.publishLocked()
	out.slice = slice
	out.calibrated = calibrated
	e.mu.Unlock()

	e.dispatch(out)
}

// Stop finalizes the current window, scoring partial windows, and releases
// the capture. Calling Stop when not running is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return
	}
	s.cancel()
	e.mu.Unlock()

	// Let the loop finish its current block so its events go out first.
	<-s.done
	e.stopCapture()

	e.mu.Lock()
	if e.session != s {
		e.mu.Unlock()
		return
	}
	out := e.stopLocked(e.now(), StatusIdle, nil)
	e.mu.Unlock()

	e.log.Info().Msg("Monitoring stopped")
	e.dispatch(out)
}

func (e *Engine) stopCapture() {
	if e.capture == nil {
		return
	}
	if err := e.capture.Stop(); err != nil {
		e.log.Warn().Err(err).Msg("Failed to stop capture")
	}
}

// stopLocked ends the session, finalizes the window at end and moves to status.
func (e *Engine) stopLocked(end time.Time, status Status, err error) outcome {
	if e.session != nil {
		e.session.cancel()
		e.session = nil
	}
	if e.cal.State() == meter.CalibrationCollecting {
		e.cal.Abort()
		e.log.Info().Msg("Calibration aborted by stop")
	}

	var slice *meter.SliceSummary
	if summary, ok := e.agg.Finalize(end, e.cal.Current()); ok {
		slice = &summary
		e.lastSlice = slice
	}
	e.interim, e.breakdown = e.agg.Interim()
	e.status = status
	e.lastErr = err

	out := e.publishLocked()
	out.slice = slice
	return out
}

func (e *Engine) failLocked(status Status, err error) outcome {
	e.status = status
	e.lastErr = err
	return e.publishLocked()
}

// Calibrate starts collecting a new display baseline so that the current
// ambient level reads as target. It requires a running stream.
func (e *Engine) Calibrate(target float64) error {
	e.mu.Lock()
	err := e.cal.Begin(target, e.status == StatusRunning)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	out := e.publishLocked()
	e.mu.Unlock()

	e.log.Info().Float64("target", target).Dur("duration", meter.CalibrationDuration).Msg("Calibration started")
	e.dispatch(out)
	return nil
}

// ApplySettings updates the display calibration from changed settings.
// It is ignored while a calibration is collecting.
func (e *Engine) ApplySettings(s settings.ControlSettings) {
	e.mu.Lock()
	e.cal.Set(s.Calibration())
	e.mu.Unlock()
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:           e.status,
		Level:            e.level,
		DisplayLevel:     e.display,
		Realtime:         e.ring.Snapshot(),
		LastSlice:        e.lastSlice,
		InterimScore:     e.interim,
		InterimBreakdown: e.breakdown,
		Calibrating:      e.cal.State() == meter.CalibrationCollecting,
		Calibration:      e.cal.Current(),
		WindowStart:      e.agg.Start(),
		WindowFrames:     e.agg.ValidFrames(),
	}
	if e.lastErr != nil {
		s.Error = e.lastErr.Error()
	}
	return s
}

func (e *Engine) publishLocked() outcome {
	out := outcome{snapshot: e.snapshotLocked()}
	out.listeners = make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		out.listeners = append(out.listeners, l)
	}
	return out
}

// dispatch persists and fans out an outcome. Call without the lock held.
func (e *Engine) dispatch(out outcome) {
	if out.slice != nil {
		e.log.Info().
			Str("id", out.slice.ID).
			Float64("score", out.slice.Score).
			Int("frames", out.slice.FrameCount).
			Int("segments", out.slice.Raw.SegmentCount).
			Msg("Slice finalized")
		if e.history != nil {
			if err := e.history.Append(context.Background(), *out.slice); err != nil {
				e.log.Warn().Err(err).Str("id", out.slice.ID).Msg("Failed to persist slice")
			}
		}
		for _, l := range out.listeners {
			l.OnSlice(*out.slice)
		}
	}

	if out.calibrated != nil {
		e.log.Info().
			Float64("baseline_level", out.calibrated.BaselineLevel).
			Float64("baseline_amplitude", out.calibrated.BaselineAmplitude).
			Msg("Calibration complete")
		if e.settings != nil {
			next := e.settings.Current().WithCalibration(*out.calibrated)
			if _, err := e.settings.Save(next); err != nil {
				e.log.Warn().Err(err).Msg("Failed to save calibration")
			}
		}
	}

	for _, l := range out.listeners {
		l.OnSnapshot(out.snapshot)
	}
}

// Subscribe registers l for snapshots and finished slices. The returned
// function removes it.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = l
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// ListDevices returns the capture's input devices.
func (e *Engine) ListDevices() ([]audio.AudioDevice, error) {
	if e.capture == nil {
		return nil, nil
	}
	return e.capture.ListDevices()
}

// IsRunning reports whether monitoring is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status == StatusRunning
}
