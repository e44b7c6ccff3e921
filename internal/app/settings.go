package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/todosync/internal/calendar"
	"github.com/nhle/todosync/internal/config"
	"github.com/nhle/todosync/internal/credential"
	"github.com/nhle/todosync/internal/logging"
)

// Settings are the process-wide options resolved from configuration.
type Settings struct {
	CalDAV   calendar.Options
	Cooldown time.Duration
	Log      logging.Options

	// JournalPath is empty when the journal is disabled.
	JournalPath string
}

// LoadLogOptions resolves the logging options alone, so that the logger
// exists before anything else can fail.
func LoadLogOptions(p *config.Provider) (logging.Options, error) {
	var (
		opts logging.Options
		err  error
	)
	if opts.Level, err = p.String("loglevel"); err != nil {
		return opts, err
	}
	if opts.File, err = optionalString(p, "log.file"); err != nil {
		return opts, err
	}
	if opts.MaxSizeMB, err = p.Int("log.max_size_mb"); err != nil {
		return opts, err
	}
	if opts.MaxBackups, err = p.Int("log.max_backups"); err != nil {
		return opts, err
	}
	if opts.MaxAgeDays, err = p.Int("log.max_age_days"); err != nil {
		return opts, err
	}
	return opts, nil
}

// LoadSettings resolves every process-wide setting. Missing or mistyped
// keys are reported before anything connects.
func LoadSettings(p *config.Provider) (Settings, error) {
	var (
		s   Settings
		err error
	)

	if s.Log, err = LoadLogOptions(p); err != nil {
		return s, err
	}
	if s.CalDAV.URL, err = p.String("caldav.url"); err != nil {
		return s, err
	}
	if s.CalDAV.User, err = p.String("caldav.user"); err != nil {
		return s, err
	}
	if s.CalDAV.Password, err = p.Secret("caldav.password", credential.KeyCalDAVPassword); err != nil {
		return s, err
	}
	if s.CalDAV.Calendar, err = p.String("caldav.calendar"); err != nil {
		return s, err
	}
	if s.Cooldown, err = p.Seconds("supervisor.cooldown"); err != nil {
		return s, err
	}

	if s.JournalPath, err = LoadJournalPath(p); err != nil {
		return s, err
	}

	return s, nil
}

// LoadJournalPath resolves the journal database path, or "" when the
// journal is disabled.
func LoadJournalPath(p *config.Provider) (string, error) {
	enabled, err := optionalBool(p, "journal.enabled", true)
	if err != nil || !enabled {
		return "", err
	}
	path, err := optionalString(p, "journal.path")
	if err != nil || path != "" {
		return path, err
	}
	return DefaultJournalPath()
}

// DefaultJournalPath returns ~/.config/todosync/journal.db.
func DefaultJournalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "todosync", "journal.db"), nil
}

// optionalString resolves key, treating an absent key as "".
func optionalString(p *config.Provider, key string) (string, error) {
	v, err := p.String(key)
	if errors.Is(err, config.ErrMissing) {
		return "", nil
	}
	return v, err
}

// optionalBool resolves key, treating an absent key as def.
func optionalBool(p *config.Provider, key string, def bool) (bool, error) {
	v, err := p.Bool(key)
	if errors.Is(err, config.ErrMissing) {
		return def, nil
	}
	return v, err
}
