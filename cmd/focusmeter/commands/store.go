package commands

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/petems/focusmeter/internal/config"
	"github.com/petems/focusmeter/internal/history"
	"github.com/petems/focusmeter/internal/kv"
	"github.com/petems/focusmeter/internal/settings"
)

// historyEnv bundles the history store and its backing database.
type historyEnv struct {
	db    *kv.Badger
	store *history.Store
}

// openHistory opens the on-disk history. Badger holds an exclusive lock on
// the directory, so this fails while "focusmeter run" is active.
func openHistory(cfg *config.Config, log zerolog.Logger) (*historyEnv, error) {
	db, err := kv.NewBadger(kv.BadgerOptions{
		Dir:    cfg.HistoryDir(),
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("open history (is focusmeter already running?): %w", err)
	}
	return &historyEnv{
		db:    db,
		store: history.New(db, history.Options{Logger: log}),
	}, nil
}

func (e *historyEnv) close() {
	e.db.Close()
}

// loadSettings returns a holder with settings.json already read.
func loadSettings(log zerolog.Logger) (*settings.Holder, error) {
	holder := settings.NewHolder(config.SettingsPath(), log)
	if _, err := holder.Load(); err != nil {
		return nil, err
	}
	return holder, nil
}
