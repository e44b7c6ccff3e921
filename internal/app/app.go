// Package app wires configuration, the calendar and the notification
// sources into a supervisor.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhle/todosync/internal/calendar"
	"github.com/nhle/todosync/internal/config"
	"github.com/nhle/todosync/internal/store"
	"github.com/nhle/todosync/internal/sync"
)

// App holds the resolved settings and synchronizers of one process.
type App struct {
	Settings      Settings
	Synchronizers []Synchronizer

	logger *slog.Logger
}

// New resolves settings and synchronizers from p.
func New(p *config.Provider, logger *slog.Logger) (*App, error) {
	settings, err := LoadSettings(p)
	if err != nil {
		return nil, err
	}
	syncs, err := LoadSynchronizers(p, logger)
	if err != nil {
		return nil, err
	}
	return &App{Settings: settings, Synchronizers: syncs, logger: logger}, nil
}

// Connect opens a calendar session.
func (a *App) Connect(ctx context.Context) (sync.Session, error) {
	session, err := calendar.Connect(ctx, a.Settings.CalDAV)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("calendar connected", "path", session.Store().Path())
	return calendarSession{session}, nil
}

// calendarSession narrows *calendar.Session to sync.Session.
type calendarSession struct {
	*calendar.Session
}

func (s calendarSession) Store() calendar.Store {
	return s.Session.Store()
}

// OpenJournal opens the sync journal, creating its directory. It returns
// nil when the journal is disabled.
func (a *App) OpenJournal() (*store.SQLiteStore, error) {
	if a.Settings.JournalPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(a.Settings.JournalPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return store.NewSQLiteStore(a.Settings.JournalPath)
}

// NewSupervisor builds a supervisor over every enabled synchronizer.
// journal may be nil.
func (a *App) NewSupervisor(journal store.Store) *sync.Supervisor {
	entries := make([]sync.Entry, 0, len(a.Synchronizers))
	for _, s := range a.Synchronizers {
		entries = append(entries, s.Entry())
	}

	opts := []sync.Option{sync.WithLogger(a.logger)}
	if journal != nil {
		opts = append(opts, sync.WithRecorder(journal))
	}
	return sync.New(a.Connect, a.Settings.Cooldown, entries, opts...)
}
