// Package calendar provides the calendar item store the synchronizer
// reads and writes todos through, backed by a CalDAV collection.
package calendar

import (
	"context"
	"errors"

	"github.com/nhle/todosync/internal/model"
)

// ErrCalendarNotFound is returned when no calendar has the configured name.
var ErrCalendarNotFound = errors.New("calendar not found")

// Store is the calendar item store contract.
type Store interface {
	// ListTodos returns the collection's todos, optionally including
	// completed ones.
	ListTodos(ctx context.Context, includeCompleted bool) ([]model.Todo, error)

	// CreateTodo persists a new todo and returns it as stored.
	CreateTodo(ctx context.Context, todo model.NewTodo) (model.Todo, error)

	MarkComplete(ctx context.Context, todo model.Todo) error
	MarkIncomplete(ctx context.Context, todo model.Todo) error
	Delete(ctx context.Context, todo model.Todo) error
}
