// Package reconcile converges calendar todos with remote notifications.
//
// Each cycle rebuilds the correlation between the two sides from the
// identifiers embedded in todo descriptions, so no mapping is persisted.
// A todo lives only as long as its notification stays inside the lookback
// window; re-processing a notification that already converged is a no-op.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/nhle/todosync/internal/calendar"
	"github.com/nhle/todosync/internal/crossref"
	"github.com/nhle/todosync/internal/model"
	"github.com/nhle/todosync/internal/source"
)

var (
	// ErrUnknownReason is returned when a notification carries a reason
	// missing from the reason table.
	ErrUnknownReason = errors.New("unknown notification reason")

	// ErrDuplicateIdentifier is returned when two todos embed the same
	// notification id.
	ErrDuplicateIdentifier = errors.New("duplicate embedded identifier")
)

// Config configures an Engine.
type Config struct {
	// Name is the synchronizer's config key prefix, used in logs.
	Name string

	Source  source.NotificationSource
	Matcher crossref.Matcher

	// Reasons maps notification reasons onto description sentences.
	Reasons map[string]string

	// SummaryTag is prepended to the title of created todos.
	SummaryTag string

	// Window is the lookback applied to notification updates.
	Window time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Engine reconciles one notification source with a calendar.
type Engine struct {
	name    string
	source  source.NotificationSource
	matcher crossref.Matcher
	reasons map[string]string
	tag     string
	window  time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		name:    cfg.Name,
		source:  cfg.Source,
		matcher: cfg.Matcher,
		reasons: cfg.Reasons,
		tag:     cfg.SummaryTag,
		window:  cfg.Window,
		now:     now,
		logger:  logger.With("synchronizer", cfg.Name),
	}
}

// Name returns the synchronizer name.
func (e *Engine) Name() string {
	return e.name
}

// Reconcile runs one cycle against cal. Any error aborts the cycle; the
// next cycle picks up where this one left off.
func (e *Engine) Reconcile(ctx context.Context, cal calendar.Store) (Outcome, error) {
	var out Outcome

	todos, err := cal.ListTodos(ctx, true)
	if err != nil {
		return out, fmt.Errorf("listing todos: %w", err)
	}
	e.logger.Debug("todos found", "count", len(todos))

	index, err := e.buildIndex(todos)
	if err != nil {
		return out, err
	}

	since := e.now().Add(-e.window)
	notifications, err := e.source.ListNotifications(ctx, since)
	if err != nil {
		return out, fmt.Errorf("listing notifications since %s: %w", since.Format(time.RFC3339), err)
	}
	e.logger.Debug("notifications found", "count", len(notifications), "since", since)

	seen := make(map[int64]bool, len(notifications))
	for _, n := range notifications {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true

		if todo, ok := index[n.ID]; ok {
			if err := e.resolve(ctx, cal, todo, n, &out); err != nil {
				return out, err
			}
			delete(index, n.ID)
		} else if err := e.create(ctx, cal, n, &out); err != nil {
			return out, err
		}

		if err := yield(ctx); err != nil {
			return out, err
		}
	}

	// Whatever is left lost its notification to the lookback window.
	for _, id := range slices.Sorted(maps.Keys(index)) {
		todo := index[id]
		e.logger.Info("deleting dangling todo", "notification_id", id, "todo", todo.Key)
		if err := cal.Delete(ctx, todo); err != nil {
			return out, fmt.Errorf("deleting dangling todo %s: %w", todo.Key, err)
		}
		out.Deleted++
	}

	return out, nil
}

// buildIndex maps embedded notification ids to todos. Todos without an
// identifier are not managed and are skipped.
func (e *Engine) buildIndex(todos []model.Todo) (map[int64]model.Todo, error) {
	index := make(map[int64]model.Todo, len(todos))
	for _, todo := range todos {
		id, ok := e.matcher.Extract(todo.Description)
		if !ok {
			continue
		}
		if prev, dup := index[id]; dup {
			return nil, fmt.Errorf(
				"%w: %s%d in %s and %s",
				ErrDuplicateIdentifier, e.matcher.Prefix(), id, prev.Key, todo.Key,
			)
		}
		index[id] = todo
	}
	return index, nil
}

// create adds a todo for a notification without a match. Everything that
// can fail before the write is checked first so that an aborted creation
// leaves nothing behind.
func (e *Engine) create(
	ctx context.Context,
	cal calendar.Store,
	n model.Notification,
	out *Outcome,
) error {
	log := e.logger.With("notification_id", n.ID)
	log.Info("create", "title", n.Title)

	reason, ok := e.reasons[n.Reason]
	if !ok {
		return fmt.Errorf("%w: %q (notification %d)", ErrUnknownReason, n.Reason, n.ID)
	}

	todo := model.NewTodo{
		Summary:     e.tag + n.Title,
		Description: e.describe(n, reason),
		Status:      model.StatusNeedsAction,
	}
	if n.Subject.URL != "" {
		todo.Location = e.canonicalLink(ctx, log, n.Subject.URL)
	}

	created, err := cal.CreateTodo(ctx, todo)
	if err != nil {
		return fmt.Errorf("creating todo for notification %d: %w", n.ID, err)
	}
	out.Created++

	if !n.Unread {
		log.Info("mark todo complete", "todo", created.Key)
		if err := cal.MarkComplete(ctx, created); err != nil {
			return fmt.Errorf("completing new todo for notification %d: %w", n.ID, err)
		}
		out.Completed++
	}

	return nil
}

// describe renders the description of a new todo, ending with the
// embedded identifier.
func (e *Engine) describe(n model.Notification, reason string) string {
	parts := make([]string, 0, 4)
	if n.Repository.FullName != "" {
		parts = append(parts, n.Repository.FullName)
	}
	if n.Repository.Description != "" {
		parts = append(parts, n.Repository.Description)
	}
	parts = append(parts, reason, e.matcher.Embed(n.ID))
	return strings.Join(parts, "\n\n")
}

// canonicalLink resolves the web URL of a notification subject. Failures
// only cost the todo its location.
func (e *Engine) canonicalLink(ctx context.Context, log *slog.Logger, url string) string {
	detail, err := e.source.FetchDetail(ctx, url)
	if err != nil {
		log.Warn("fetching subject detail failed; omitting location", "url", url, "error", err)
		return ""
	}
	link, ok := detail.String("html_url")
	if !ok {
		log.Debug("subject detail has no html_url", "url", url)
		return ""
	}
	return link
}

// yield is the single scheduling point between notifications, letting the
// other synchronizers' timers run during large batches.
func yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.Gosched()
	return nil
}
