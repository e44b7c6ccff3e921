package reconcile

import (
	"context"
	"fmt"

	"github.com/nhle/todosync/internal/calendar"
	"github.com/nhle/todosync/internal/model"
)

// Direction is the side whose state wins for a matched pair.
type Direction int

const (
	// DirectionToCalendar applies the notification's state to the todo.
	DirectionToCalendar Direction = iota

	// DirectionToRemote applies the todo's state to the notification.
	DirectionToRemote
)

func (d Direction) String() string {
	switch d {
	case DirectionToCalendar:
		return "remote->calendar"
	case DirectionToRemote:
		return "calendar->remote"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Decide picks the sync direction for a matched pair: the most recently
// modified side wins, ties go to the calendar, and a todo that was never
// modified always takes the remote state.
func Decide(todo model.Todo, n model.Notification) Direction {
	if todo.LastModified == nil || todo.LastModified.Before(n.UpdatedAt) {
		return DirectionToCalendar
	}
	return DirectionToRemote
}

// resolve applies the minimal state transition for a matched pair. At most
// one side is written and only when its state differs from the target.
func (e *Engine) resolve(
	ctx context.Context,
	cal calendar.Store,
	todo model.Todo,
	n model.Notification,
	out *Outcome,
) error {
	dir := Decide(todo, n)
	log := e.logger.With(
		"notification_id", n.ID,
		"todo", todo.Key,
		"direction", dir.String(),
	)
	log.Debug("update", "title", n.Title)

	complete := todo.IsComplete()

	switch dir {
	case DirectionToCalendar:
		switch {
		case n.Unread && complete:
			log.Info("mark todo incomplete")
			if err := cal.MarkIncomplete(ctx, todo); err != nil {
				return fmt.Errorf("reopening todo for notification %d: %w", n.ID, err)
			}
			out.Uncompleted++
		case !n.Unread && !complete:
			log.Info("mark todo complete")
			if err := cal.MarkComplete(ctx, todo); err != nil {
				return fmt.Errorf("completing todo for notification %d: %w", n.ID, err)
			}
			out.Completed++
		default:
			out.Unchanged++
		}

	case DirectionToRemote:
		switch {
		case complete && n.Unread:
			log.Info("mark notification read")
			if err := e.source.MarkRead(ctx, n); err != nil {
				return fmt.Errorf("marking notification %d read: %w", n.ID, err)
			}
			out.MarkedRead++
		case !complete && !n.Unread:
			// Todo incomplete and newer, notification read: the remote should be
			// unread again, but the notifications API cannot mark a thread unread.
			log.Info("should mark notification unread; not supported by the source")
			out.Pending++
		default:
			out.Unchanged++
		}
	}

	return nil
}
