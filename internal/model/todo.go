package model

import "time"

// TodoStatus is the VTODO STATUS value managed by the synchronizer.
type TodoStatus string

// Todo status constants.
const (
	StatusNeedsAction TodoStatus = "NEEDS-ACTION"
	StatusCompleted   TodoStatus = "COMPLETED"
)

// Todo is a task item stored in the calendar.
type Todo struct {
	// Key is the store-assigned identifier (the CalDAV object path).
	Key string `json:"key"`

	// UID is the iCalendar UID of the VTODO.
	UID string `json:"uid"`

	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Status      TodoStatus `json:"status"`

	// CompletedAt mirrors the COMPLETED property, if present.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// LastModified is nil when the item was never modified since creation.
	LastModified *time.Time `json:"last_modified,omitempty"`

	// Location optionally holds a URL pointing at the source item.
	Location string `json:"location,omitempty"`
}

// IsComplete reports whether the todo is in its completed state. Clients
// disagree on which of STATUS and COMPLETED they maintain, so either counts.
func (t Todo) IsComplete() bool {
	return t.Status == StatusCompleted || t.CompletedAt != nil
}

// NewTodo holds the fields used to create a todo.
type NewTodo struct {
	Summary     string
	Description string
	Location    string
	Status      TodoStatus
}
