package reconcile

import "log/slog"

// Outcome counts what one reconciliation cycle did.
type Outcome struct {
	Created     int
	Completed   int
	Uncompleted int
	MarkedRead  int
	Deleted     int

	// Pending counts transitions the remote side cannot apply.
	Pending int

	// Unchanged counts matched pairs that were already consistent.
	Unchanged int
}

// Mutations returns the number of writes issued to either side.
func (o Outcome) Mutations() int {
	return o.Created + o.Completed + o.Uncompleted + o.MarkedRead + o.Deleted
}

// LogValue implements slog.LogValuer.
func (o Outcome) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("created", o.Created),
		slog.Int("completed", o.Completed),
		slog.Int("uncompleted", o.Uncompleted),
		slog.Int("marked_read", o.MarkedRead),
		slog.Int("deleted", o.Deleted),
		slog.Int("pending", o.Pending),
		slog.Int("unchanged", o.Unchanged),
	)
}
