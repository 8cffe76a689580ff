package settings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/focusmeter/internal/meter"
)

func newTestHolder(t *testing.T) *Holder {
	t.Helper()
	return NewHolder(filepath.Join(t.TempDir(), "settings.json"), zerolog.Nop())
}

func TestDefaultsArePinned(t *testing.T) {
	s := Defaults()
	if s.WindowSeconds != 30 || s.FrameIntervalMs != 50 || s.MergeGapMs != 500 {
		t.Errorf("fixed block = %+v", s)
	}
	if s.ScoreThresholdDBFS != meter.ScoreThresholdDBFS || s.MaxSegmentsPerMinute != meter.MaxSegmentsPerMinute {
		t.Errorf("fixed block = %+v", s)
	}
	if s.Calibration() != meter.DefaultCalibration() {
		t.Errorf("Calibration() = %+v", s.Calibration())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	h := newTestHolder(t)
	s, err := h.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Defaults() {
		t.Errorf("Load() = %+v, want defaults", s)
	}
}

func TestLoadMalformedFileUsesDefaults(t *testing.T) {
	h := newTestHolder(t)
	if err := os.WriteFile(h.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := h.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Defaults() {
		t.Errorf("Load() = %+v, want defaults", s)
	}
}

func TestSavePinsFixedFields(t *testing.T) {
	h := newTestHolder(t)

	s := Defaults()
	s.DisplayBaselineLevel = 55
	s.ShowBreakdown = true
	s.WindowSeconds = 5
	s.ScoreThresholdDBFS = -10
	s.MergeGapMs = 1

	saved, err := h.Save(s)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.WindowSeconds != 30 || saved.ScoreThresholdDBFS != -50 || saved.MergeGapMs != 500 {
		t.Errorf("fixed fields not pinned: %+v", saved)
	}
	if saved.DisplayBaselineLevel != 55 || !saved.ShowBreakdown {
		t.Errorf("mutable fields lost: %+v", saved)
	}

	// A fresh holder sees the persisted values.
	h2 := NewHolder(h.Path(), zerolog.Nop())
	got, err := h2.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != saved {
		t.Errorf("reloaded = %+v, want %+v", got, saved)
	}
}

func TestLoadPinsHandEditedFile(t *testing.T) {
	h := newTestHolder(t)
	body := `{"display_baseline_level": 60, "window_seconds": 10, "merge_gap_ms": 0}`
	if err := os.WriteFile(h.Path(), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := h.Load()
	if err != nil {
		t.Fatal(err)
	}
	if s.DisplayBaselineLevel != 60 {
		t.Errorf("DisplayBaselineLevel = %g, want 60", s.DisplayBaselineLevel)
	}
	if s.WindowSeconds != 30 || s.MergeGapMs != 500 {
		t.Errorf("fixed fields not pinned on load: %+v", s)
	}
	if s.BaselineAmplitude != meter.DefaultBaselineAmplitude {
		t.Errorf("missing field should keep default, got %g", s.BaselineAmplitude)
	}
}

func TestSaveRejectsUnusableCalibration(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		amp   float64
	}{
		{"zero amplitude", 40, 0},
		{"negative amplitude", 40, -1},
		{"level too low", 5, 0.01},
		{"level too high", 150, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHolder(t)
			s := Defaults()
			s.DisplayBaselineLevel = tt.level
			s.BaselineAmplitude = tt.amp
			saved, err := h.Save(s)
			if err != nil {
				t.Fatal(err)
			}
			if saved.BaselineAmplitude <= 0 {
				t.Errorf("BaselineAmplitude = %g", saved.BaselineAmplitude)
			}
			if saved.DisplayBaselineLevel < meter.MinDisplayLevel || saved.DisplayBaselineLevel > meter.MaxDisplayLevel {
				t.Errorf("DisplayBaselineLevel = %g", saved.DisplayBaselineLevel)
			}
		})
	}
}

func TestSubscribeNotifiesOnSaveAndReset(t *testing.T) {
	h := newTestHolder(t)

	var got []ControlSettings
	unsubscribe := h.Subscribe(func(s ControlSettings) {
		got = append(got, s)
	})

	s := Defaults()
	s.ShowRealtime = false
	if _, err := h.Save(s); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Reset(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("notifications = %d, want 2", len(got))
	}
	if got[0].ShowRealtime || !got[1].ShowRealtime {
		t.Errorf("notifications = %+v", got)
	}

	unsubscribe()
	unsubscribe()
	if _, err := h.Reset(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("unsubscribed callback still called")
	}
}

func TestWithCalibration(t *testing.T) {
	cal := meter.Calibration{BaselineLevel: 62, BaselineAmplitude: 0.03}
	s := Defaults().WithCalibration(cal)
	if s.Calibration() != cal {
		t.Errorf("Calibration() = %+v, want %+v", s.Calibration(), cal)
	}
}

func TestWatchReloadsExternalEdits(t *testing.T) {
	h := newTestHolder(t)
	if _, err := h.Load(); err != nil {
		t.Fatal(err)
	}

	changed := make(chan ControlSettings, 4)
	h.Subscribe(func(s ControlSettings) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	other := NewHolder(h.Path(), zerolog.Nop())
	s := Defaults()
	s.DisplayBaselineLevel = 70
	if err := other.write(s.sanitize()); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if got.DisplayBaselineLevel != 70 {
			t.Errorf("reloaded DisplayBaselineLevel = %g, want 70", got.DisplayBaselineLevel)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func startWatch(t *testing.T, h *Holder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch returned %v", err)
		}
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
}

func TestSaveWhileWatchingNeverBroadcastsDefaults(t *testing.T) {
	h := newTestHolder(t)
	if _, err := h.Load(); err != nil {
		t.Fatal(err)
	}

	var (
		mu  sync.Mutex
		got []ControlSettings
	)
	h.Subscribe(func(s ControlSettings) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})
	startWatch(t, h)

	for i := 0; i < 200; i++ {
		s := Defaults()
		s.DisplayBaselineLevel = float64(60 + i%30)
		s.BaselineAmplitude = 0.2
		if _, err := h.Save(s); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	// Let the watcher drain the remaining events.
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) < 200 {
		t.Fatalf("notifications = %d, want at least 200", len(got))
	}
	for i, s := range got {
		if s.BaselineAmplitude != 0.2 {
			t.Fatalf("notification %d carries baseline %+v", i, s.Calibration())
		}
	}
	if c := h.Current(); c.DisplayBaselineLevel != float64(60+199%30) {
		t.Errorf("Current().DisplayBaselineLevel = %g, want %d", c.DisplayBaselineLevel, 60+199%30)
	}
}

func TestWatchSkipsUnreadableFiles(t *testing.T) {
	tests := []struct {
		name string
		edit func(path string) error
	}{
		{"truncated", func(path string) error { return os.WriteFile(path, nil, 0644) }},
		{"partial", func(path string) error { return os.WriteFile(path, []byte(`{"display_baseline_level": 7`), 0644) }},
		{"removed", os.Remove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHolder(t)
			s := Defaults()
			s.DisplayBaselineLevel = 75
			saved, err := h.Save(s)
			if err != nil {
				t.Fatal(err)
			}

			changed := make(chan ControlSettings, 4)
			h.Subscribe(func(s ControlSettings) { changed <- s })
			startWatch(t, h)

			if err := tt.edit(h.Path()); err != nil {
				t.Fatal(err)
			}

			select {
			case got := <-changed:
				t.Errorf("unexpected reload %+v", got)
			case <-time.After(300 * time.Millisecond):
			}
			if h.Current() != saved {
				t.Errorf("Current() = %+v, want %+v", h.Current(), saved)
			}
		})
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	h := newTestHolder(t)
	for i := 0; i < 3; i++ {
		if _, err := h.Save(Defaults()); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(h.Path()))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}
