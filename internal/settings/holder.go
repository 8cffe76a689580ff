package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// errMalformed marks a settings file that exists but does not parse.
var errMalformed = errors.New("settings: malformed file")

// Holder owns the current settings, persists them as JSON and broadcasts
// changes to subscribers.
type Holder struct {
	path string
	log  zerolog.Logger

	// writeMu orders file writes against watcher reloads so a reload never
	// compares a file against settings it has not caught up with.
	writeMu sync.Mutex

	mu      sync.Mutex
	current ControlSettings
	subs    map[int]func(ControlSettings)
	nextID  int
}

// NewHolder creates a Holder backed by the file at path. Call Load to read
// it; until then Current returns Defaults.
func NewHolder(path string, log zerolog.Logger) *Holder {
	return &Holder{
		path:    path,
		log:     log,
		current: Defaults(),
		subs:    make(map[int]func(ControlSettings)),
	}
}

// Path returns the backing file path.
func (h *Holder) Path() string {
	return h.path
}

// Current returns the settings in effect.
func (h *Holder) Current() ControlSettings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Load reads the settings file. A missing or malformed file yields the
// defaults; Load only fails when the file exists but cannot be read.
func (h *Holder) Load() (ControlSettings, error) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	s, err := h.read()
	switch {
	case errors.Is(err, os.ErrNotExist):
		s = Defaults()
	case errors.Is(err, errMalformed):
		h.log.Warn().Err(err).Str("path", h.path).Msg("Malformed settings, using defaults")
		s = Defaults()
	case err != nil:
		return h.Current(), err
	}

	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
	return s, nil
}

// read parses the file. Missing and malformed files are reported as
// errors wrapping os.ErrNotExist and errMalformed.
func (h *Holder) read() (ControlSettings, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return ControlSettings{}, fmt.Errorf("settings: read %s: %w", h.path, err)
	}

	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return ControlSettings{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return s.sanitize(), nil
}

// Save merges s, pins the fixed fields, writes the file and notifies
// subscribers with the resulting settings.
func (h *Holder) Save(s ControlSettings) (ControlSettings, error) {
	s = s.sanitize()

	h.writeMu.Lock()
	if err := h.write(s); err != nil {
		h.writeMu.Unlock()
		return h.Current(), err
	}
	subs := h.store(s)
	h.writeMu.Unlock()

	notify(subs, s)
	return s, nil
}

// Reset restores the defaults, writes them and notifies subscribers.
func (h *Holder) Reset() (ControlSettings, error) {
	return h.Save(Defaults())
}

// write replaces the file atomically so readers never see a partial file.
func (h *Holder) write(s ControlSettings) error {
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("settings: write %s: %w", h.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write %s: %w", h.path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write %s: %w", h.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: write %s: %w", h.path, err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		return fmt.Errorf("settings: write %s: %w", h.path, err)
	}
	return nil
}

// store sets s as current and returns the subscribers to notify.
func (h *Holder) store(s ControlSettings) []func(ControlSettings) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s
	subs := make([]func(ControlSettings), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(ControlSettings), s ControlSettings) {
	for _, fn := range subs {
		fn(s)
	}
}

// Subscribe registers fn for settings-changed notifications. The returned
// function removes the subscription.
func (h *Holder) Subscribe(fn func(ControlSettings)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Watch reloads the settings file when another process edits it and
// notifies subscribers if the result differs. Missing, partial or
// malformed files are skipped and keep the settings in effect. It blocks
// until ctx is done.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so that atomic replaces are seen too.
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("settings: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(h.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.log.Warn().Err(err).Msg("Settings watcher error")
		}
	}
}

func (h *Holder) reload() {
	h.writeMu.Lock()
	s, err := h.read()
	if err != nil {
		h.writeMu.Unlock()
		h.log.Debug().Err(err).Msg("Skipping settings reload")
		return
	}
	if s == h.Current() {
		h.writeMu.Unlock()
		return
	}
	subs := h.store(s)
	h.writeMu.Unlock()

	h.log.Info().Str("path", h.path).Msg("Settings changed on disk")
	notify(subs, s)
}
