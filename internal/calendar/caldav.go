package calendar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/nhle/todosync/internal/model"
)

// Options configures the CalDAV connection.
type Options struct {
	URL      string
	User     string
	Password string

	// Calendar is the display name of the collection holding the todos.
	Calendar string

	// Timeout bounds each HTTP request. Zero means 30 seconds.
	Timeout time.Duration
}

// Session is a connection to one resolved calendar. Close must be called
// once the session is no longer used.
type Session struct {
	transport *http.Transport
	store     *CalDAVStore
}

// Connect authenticates against the CalDAV server, discovers the user's
// calendars and selects the one named in opts.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	httpClient := webdav.HTTPClientWithBasicAuth(
		&http.Client{Transport: transport, Timeout: timeout},
		opts.User, opts.Password,
	)

	client, err := caldav.NewClient(httpClient, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("creating CalDAV client for %s: %w", opts.URL, err)
	}

	cal, err := findCalendar(ctx, client, opts.Calendar)
	if err != nil {
		transport.CloseIdleConnections()
		return nil, err
	}

	return &Session{
		transport: transport,
		store: &CalDAVStore{
			client: client,
			path:   cal.Path,
			now:    time.Now,
		},
	}, nil
}

func findCalendar(ctx context.Context, client *caldav.Client, name string) (caldav.Calendar, error) {
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return caldav.Calendar{}, fmt.Errorf("finding current user principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return caldav.Calendar{}, fmt.Errorf("finding calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return caldav.Calendar{}, fmt.Errorf("listing calendars: %w", err)
	}

	return selectCalendar(cals, name)
}

// selectCalendar picks the calendar whose display name equals name.
func selectCalendar(cals []caldav.Calendar, name string) (caldav.Calendar, error) {
	for _, c := range cals {
		if c.Name == name {
			return c, nil
		}
	}
	return caldav.Calendar{}, fmt.Errorf("%w: %q", ErrCalendarNotFound, name)
}

// Store returns the item store of the resolved calendar.
func (s *Session) Store() *CalDAVStore {
	return s.store
}

// Close releases the session's pooled connections.
func (s *Session) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

// CalDAVStore implements Store on a CalDAV calendar collection. It is safe
// for concurrent use.
type CalDAVStore struct {
	client *caldav.Client
	path   string
	now    func() time.Time
}

// Path returns the collection path of the calendar.
func (c *CalDAVStore) Path() string {
	return c.path
}

// ListTodos queries all VTODO objects of the collection.
func (c *CalDAVStore) ListTodos(ctx context.Context, includeCompleted bool) ([]model.Todo, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{{
				Name:     "VTODO",
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VTODO"}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, c.path, query)
	if err != nil {
		return nil, fmt.Errorf("querying todos in %s: %w", c.path, err)
	}

	todos := make([]model.Todo, 0, len(objects))
	for _, obj := range objects {
		todo, ok := parseTodo(obj.Path, obj.Data)
		if !ok {
			continue
		}
		if !includeCompleted && todo.IsComplete() {
			continue
		}
		todos = append(todos, todo)
	}
	return todos, nil
}

// CreateTodo writes a new VTODO object named after a fresh UID.
func (c *CalDAVStore) CreateTodo(ctx context.Context, todo model.NewTodo) (model.Todo, error) {
	uid := uuid.New().String()
	path := strings.TrimRight(c.path, "/") + "/" + uid + ".ics"

	cal := newTodoCalendar(uid, todo, c.now())
	obj, err := c.client.PutCalendarObject(ctx, path, cal)
	if err != nil {
		return model.Todo{}, fmt.Errorf("creating todo %q: %w", todo.Summary, err)
	}

	if obj != nil && obj.Path != "" {
		path = obj.Path
	}
	created, _ := parseTodo(path, cal)
	return created, nil
}

// MarkComplete sets the todo's status to COMPLETED.
func (c *CalDAVStore) MarkComplete(ctx context.Context, todo model.Todo) error {
	return c.update(ctx, todo, setComplete)
}

// MarkIncomplete sets the todo's status back to NEEDS-ACTION.
func (c *CalDAVStore) MarkIncomplete(ctx context.Context, todo model.Todo) error {
	return c.update(ctx, todo, setIncomplete)
}

// Delete removes the todo's calendar object.
func (c *CalDAVStore) Delete(ctx context.Context, todo model.Todo) error {
	if err := c.client.RemoveAll(ctx, todo.Key); err != nil {
		return fmt.Errorf("deleting todo %s: %w", todo.Key, err)
	}
	return nil
}

// update re-reads the object so that properties written by other clients
// since the last listing are preserved.
func (c *CalDAVStore) update(
	ctx context.Context,
	todo model.Todo,
	apply func(*ical.Component, time.Time),
) error {
	obj, err := c.client.GetCalendarObject(ctx, todo.Key)
	if err != nil {
		return fmt.Errorf("fetching todo %s: %w", todo.Key, err)
	}

	comp := todoComponent(obj.Data)
	if comp == nil {
		return fmt.Errorf("object %s holds no VTODO", todo.Key)
	}
	apply(comp, c.now())

	if _, err := c.client.PutCalendarObject(ctx, todo.Key, obj.Data); err != nil {
		return fmt.Errorf("updating todo %s: %w", todo.Key, err)
	}
	return nil
}
