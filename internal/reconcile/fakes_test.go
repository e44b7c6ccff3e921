package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nhle/todosync/internal/model"
	"github.com/nhle/todosync/internal/source"
)

// fakeCalendar is an in-memory calendar.Store recording every write.
type fakeCalendar struct {
	todos map[string]model.Todo
	order []string
	calls []string
	next  int
	now   func() time.Time

	createErr error
}

func newFakeCalendar(now func() time.Time, todos ...model.Todo) *fakeCalendar {
	c := &fakeCalendar{todos: make(map[string]model.Todo), now: now}
	for _, t := range todos {
		c.todos[t.Key] = t
		c.order = append(c.order, t.Key)
	}
	return c
}

func (c *fakeCalendar) ListTodos(_ context.Context, includeCompleted bool) ([]model.Todo, error) {
	var out []model.Todo
	for _, key := range c.order {
		t := c.todos[key]
		if !includeCompleted && t.IsComplete() {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *fakeCalendar) CreateTodo(_ context.Context, nt model.NewTodo) (model.Todo, error) {
	if c.createErr != nil {
		return model.Todo{}, c.createErr
	}
	c.next++
	t := model.Todo{
		Key:         fmt.Sprintf("new-%d", c.next),
		Summary:     nt.Summary,
		Description: nt.Description,
		Location:    nt.Location,
		Status:      nt.Status,
	}
	c.todos[t.Key] = t
	c.order = append(c.order, t.Key)
	c.calls = append(c.calls, "create:"+t.Key)
	return t, nil
}

func (c *fakeCalendar) MarkComplete(_ context.Context, t model.Todo) error {
	stored, ok := c.todos[t.Key]
	if !ok {
		return errors.New("no such todo")
	}
	now := c.now()
	stored.Status = model.StatusCompleted
	stored.CompletedAt = &now
	stored.LastModified = &now
	c.todos[t.Key] = stored
	c.calls = append(c.calls, "complete:"+t.Key)
	return nil
}

func (c *fakeCalendar) MarkIncomplete(_ context.Context, t model.Todo) error {
	stored, ok := c.todos[t.Key]
	if !ok {
		return errors.New("no such todo")
	}
	now := c.now()
	stored.Status = model.StatusNeedsAction
	stored.CompletedAt = nil
	stored.LastModified = &now
	c.todos[t.Key] = stored
	c.calls = append(c.calls, "incomplete:"+t.Key)
	return nil
}

func (c *fakeCalendar) Delete(_ context.Context, t model.Todo) error {
	if _, ok := c.todos[t.Key]; !ok {
		return errors.New("no such todo")
	}
	delete(c.todos, t.Key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == t.Key })
	c.calls = append(c.calls, "delete:"+t.Key)
	return nil
}

// fakeSource serves a fixed set of notifications, filtered by since.
type fakeSource struct {
	notifications []model.Notification
	details       map[string]model.Detail
	detailErr     error
	listErr       error

	calls     []string
	lastSince time.Time
}

func (s *fakeSource) Type() source.SourceType { return source.SourceTypeGitHub }

func (s *fakeSource) ValidateConnection(context.Context) (string, error) { return "fake", nil }

func (s *fakeSource) ListNotifications(_ context.Context, since time.Time) ([]model.Notification, error) {
	s.lastSince = since
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Notification
	for _, n := range s.notifications {
		if !n.UpdatedAt.Before(since) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeSource) MarkRead(_ context.Context, n model.Notification) error {
	for i := range s.notifications {
		if s.notifications[i].ID == n.ID {
			s.notifications[i].Unread = false
		}
	}
	s.calls = append(s.calls, fmt.Sprintf("read:%d", n.ID))
	return nil
}

func (s *fakeSource) FetchDetail(_ context.Context, url string) (model.Detail, error) {
	s.calls = append(s.calls, "detail:"+url)
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return s.details[url], nil
}
