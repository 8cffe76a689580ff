// Package history persists finalized slice summaries with a retention
// window and a record cap.
package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/petems/focusmeter/internal/kv"
	"github.com/petems/focusmeter/internal/meter"
)

const (
	// DefaultKey is the kv key holding the encoded summary list.
	DefaultKey = "focusmeter:slices"

	Retention  = 14 * 24 * time.Hour
	MaxRecords = 1000
)

// Options configures a Store.
type Options struct {
	Key    string           // defaults to DefaultKey
	Now    func() time.Time // defaults to time.Now
	Logger zerolog.Logger
}

// Store appends summaries to a single kv record. Reads never fail: missing
// or unreadable data is reported as an empty history.
type Store struct {
	kv  kv.Store
	key string
	now func() time.Time
	log zerolog.Logger

	mu sync.Mutex
}

// New creates a Store on top of a kv.Store.
func New(store kv.Store, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		kv:  store,
		key: opts.Key,
		now: opts.Now,
		log: opts.Logger,
	}
}

// Append adds a summary, replacing any record with the same ID. Records
// whose end is older than Retention are dropped, then the oldest records
// until at most MaxRecords remain. Scoring parameters are always stored as
// the engine constants.
//
// A failed read or write is logged and returned, and the stored list is left
// as it was. It never affects the caller's in-memory state.
func (s *Store) Append(ctx context.Context, summary meter.SliceSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary.Breakdown.Params = meter.FixedParams()

	list, err := s.readLocked(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("slice", summary.ID).Msg("Failed to read history, slice not persisted")
		return fmt.Errorf("history: read: %w", err)
	}

	cutoff := s.now().Add(-Retention)
	list = slices.DeleteFunc(list, func(r meter.SliceSummary) bool {
		return r.ID == summary.ID || r.End.Before(cutoff)
	})
	if !summary.End.Before(cutoff) {
		list = append(list, summary)
	}

	slices.SortStableFunc(list, func(a, b meter.SliceSummary) int {
		return a.End.Compare(b.End)
	})
	if len(list) > MaxRecords {
		list = list[len(list)-MaxRecords:]
	}

	data, err := msgpack.Marshal(list)
	if err != nil {
		s.log.Error().Err(err).Str("slice", summary.ID).Msg("Failed to encode history")
		return fmt.Errorf("history: encode: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.log.Error().Err(err).Str("slice", summary.ID).Msg("Failed to persist slice")
		return fmt.Errorf("history: write: %w", err)
	}

	s.log.Debug().
		Str("slice", summary.ID).
		Float64("score", summary.Score).
		Int("records", len(list)).
		Msg("Slice persisted")
	return nil
}

// Load returns the retained summaries ordered by end time, or an empty
// list.
func (s *Store) Load(ctx context.Context) []meter.SliceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Recent returns up to n of the newest summaries, newest first.
func (s *Store) Recent(ctx context.Context, n int) []meter.SliceSummary {
	list := s.Load(ctx)
	slices.Reverse(list)
	if n > 0 && len(list) > n {
		list = list[:n]
	}
	return list
}

// Clear removes all stored summaries.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, s.key)
}

func (s *Store) loadLocked(ctx context.Context) []meter.SliceSummary {
	list, err := s.readLocked(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read history, treating as empty")
		return []meter.SliceSummary{}
	}
	return list
}

// readLocked decodes the stored list. A missing key or a malformed payload
// yields an empty list; only storage errors are returned.
func (s *Store) readLocked(ctx context.Context) ([]meter.SliceSummary, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return []meter.SliceSummary{}, nil
	}
	if err != nil {
		return nil, err
	}

	var list []meter.SliceSummary
	if err := msgpack.Unmarshal(data, &list); err != nil {
		s.log.Warn().Err(err).Msg("Malformed history payload, treating as empty")
		return []meter.SliceSummary{}, nil
	}
	if list == nil {
		list = []meter.SliceSummary{}
	}
	return list, nil
}
