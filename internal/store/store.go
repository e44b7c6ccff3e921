package store

import (
	"context"
	"time"
)

// Cycle is one journaled reconciliation cycle of a synchronizer.
type Cycle struct {
	ID           string    `db:"id"`
	Synchronizer string    `db:"synchronizer"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
	Created      int       `db:"created"`
	Completed    int       `db:"completed"`
	Uncompleted  int       `db:"uncompleted"`
	MarkedRead   int       `db:"marked_read"`
	Deleted      int       `db:"deleted"`
	Pending      int       `db:"pending"`
	Unchanged    int       `db:"unchanged"`

	// Error is empty for cycles that converged.
	Error string `db:"error"`
}

// Failed reports whether the cycle was aborted.
func (c Cycle) Failed() bool {
	return c.Error != ""
}

// Duration returns the wall time the cycle took.
func (c Cycle) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// Store is the sync journal. It is an audit trail only; correlation
// between todos and notifications never reads from it.
type Store interface {
	RecordCycle(ctx context.Context, c Cycle) error
	RecentCycles(ctx context.Context, limit int) ([]Cycle, error)
	LatestCycles(ctx context.Context) ([]Cycle, error)
	Close() error
}
