package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordCycle appends a cycle to the journal. A missing ID is generated.
func (s *SQLiteStore) RecordCycle(ctx context.Context, c Cycle) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.StartedAt = c.StartedAt.UTC()
	c.FinishedAt = c.FinishedAt.UTC()

	const query = `
		INSERT INTO cycles (
			id, synchronizer, started_at, finished_at,
			created, completed, uncompleted, marked_read,
			deleted, pending, unchanged, error
		) VALUES (
			:id, :synchronizer, :started_at, :finished_at,
			:created, :completed, :uncompleted, :marked_read,
			:deleted, :pending, :unchanged, :error
		)`

	if _, err := s.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("recording cycle of %s: %w", c.Synchronizer, err)
	}
	return nil
}

// RecentCycles returns up to limit cycles, newest first.
func (s *SQLiteStore) RecentCycles(ctx context.Context, limit int) ([]Cycle, error) {
	if limit <= 0 {
		limit = 20
	}

	var cycles []Cycle
	err := s.db.SelectContext(ctx, &cycles,
		"SELECT * FROM cycles ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	return cycles, nil
}

// LatestCycles returns the most recent cycle of every synchronizer,
// ordered by synchronizer name.
func (s *SQLiteStore) LatestCycles(ctx context.Context) ([]Cycle, error) {
	const query = `
		SELECT c.* FROM cycles c
		JOIN (
			SELECT synchronizer, MAX(started_at) AS started_at
			FROM cycles GROUP BY synchronizer
		) latest
		ON c.synchronizer = latest.synchronizer AND c.started_at = latest.started_at
		ORDER BY c.synchronizer`

	var cycles []Cycle
	if err := s.db.SelectContext(ctx, &cycles, query); err != nil {
		return nil, fmt.Errorf("querying latest cycles: %w", err)
	}
	return cycles, nil
}
