// Package sync schedules synchronizers against a shared calendar session
// and restarts them after failures.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/todosync/internal/calendar"
	"github.com/nhle/todosync/internal/config"
	"github.com/nhle/todosync/internal/reconcile"
	"github.com/nhle/todosync/internal/store"
)

// ErrNoSynchronizers is returned by Run when nothing is registered.
var ErrNoSynchronizers = errors.New("no synchronizers enabled")

// recordTimeout bounds a journal write, which outlives cancellation.
const recordTimeout = 5 * time.Second

// Synchronizer runs one reconciliation cycle against a calendar.
type Synchronizer interface {
	Reconcile(ctx context.Context, cal calendar.Store) (reconcile.Outcome, error)
}

// Entry registers a synchronizer with its polling interval.
type Entry struct {
	Name         string
	Synchronizer Synchronizer
	Interval     time.Duration
}

// Session is a connected calendar shared by all synchronizers of one
// supervisor iteration.
type Session interface {
	Store() calendar.Store
	Close() error
}

// Connector opens a calendar session.
type Connector func(ctx context.Context) (Session, error)

// Recorder journals finished cycles.
type Recorder interface {
	RecordCycle(ctx context.Context, c store.Cycle) error
}

// State is the lifecycle state of a Supervisor.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateCoolingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCoolingDown:
		return "cooling down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsFatal reports whether err cannot be fixed by retrying: configuration
// errors and a calendar that does not exist.
func IsFatal(err error) bool {
	return errors.Is(err, config.ErrMissing) ||
		errors.Is(err, config.ErrTypeMismatch) ||
		errors.Is(err, config.ErrInvalid) ||
		errors.Is(err, calendar.ErrCalendarNotFound)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRecorder journals every cycle to r.
func WithRecorder(r Recorder) Option {
	return func(s *Supervisor) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// Supervisor connects to the calendar, runs every registered synchronizer
// concurrently and starts over after a fixed cooldown when any of them
// fails.
type Supervisor struct {
	connect  Connector
	entries  []Entry
	cooldown time.Duration
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu    gosync.Mutex
	state State
}

// New creates a Supervisor.
func New(connect Connector, cooldown time.Duration, entries []Entry, opts ...Option) *Supervisor {
	s := &Supervisor{
		connect:  connect,
		entries:  entries,
		cooldown: cooldown,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		state:    StateStopped,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != st {
		s.logger.Debug("supervisor state", "from", s.state.String(), "to", st.String())
	}
	s.state = st
}

// Run supervises until ctx is cancelled, which is a clean stop and
// returns nil, or until a fatal error occurs.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.entries) == 0 {
		return ErrNoSynchronizers
	}
	defer s.setState(StateStopped)

	for {
		s.setState(StateStarting)
		err := s.iterate(ctx)
		if ctx.Err() != nil {
			s.logger.Info("supervisor stopping")
			return nil
		}
		if IsFatal(err) {
			s.logger.Error("fatal error", "error", err)
			return err
		}

		s.logger.Error("synchronization failed; restarting after cooldown",
			"error", err, "cooldown", s.cooldown)
		s.setState(StateCoolingDown)
		if !sleep(ctx, s.cooldown) {
			s.logger.Info("supervisor stopping")
			return nil
		}
	}
}

// iterate runs one supervisor iteration: a fresh session and one
// long-running loop per synchronizer. It returns the first loop error.
func (s *Supervisor) iterate(ctx context.Context) error {
	session, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting to calendar: %w", err)
	}
	defer s.closeSession(session)

	s.setState(StateRunning)
	cal := session.Store()

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range s.entries {
		g.Go(func() error {
			return s.loop(gctx, cal, e)
		})
	}
	return g.Wait()
}

// loop reconciles e forever. Cycles of one synchronizer never overlap.
func (s *Supervisor) loop(ctx context.Context, cal calendar.Store, e Entry) error {
	for {
		if _, err := s.cycle(ctx, cal, e); err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		if !sleep(ctx, e.Interval) {
			return ctx.Err()
		}
	}
}

// RunOnce runs a single cycle of every synchronizer against one session.
// Outcomes are keyed by synchronizer name.
func (s *Supervisor) RunOnce(ctx context.Context) (map[string]reconcile.Outcome, error) {
	if len(s.entries) == 0 {
		return nil, ErrNoSynchronizers
	}

	session, err := s.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to calendar: %w", err)
	}
	defer s.closeSession(session)
	cal := session.Store()

	var mu gosync.Mutex
	outcomes := make(map[string]reconcile.Outcome, len(s.entries))

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range s.entries {
		g.Go(func() error {
			out, err := s.cycle(gctx, cal, e)
			if err != nil {
				return fmt.Errorf("%s: %w", e.Name, err)
			}
			mu.Lock()
			outcomes[e.Name] = out
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	return outcomes, err
}

// cycle runs and journals a single reconciliation.
func (s *Supervisor) cycle(ctx context.Context, cal calendar.Store, e Entry) (reconcile.Outcome, error) {
	started := s.now()
	out, err := e.Synchronizer.Reconcile(ctx, cal)
	finished := s.now()

	log := s.logger.With("synchronizer", e.Name, "duration", finished.Sub(started))
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Stopped from outside, usually by a failing sibling; not journaled.
		log.Debug("cycle cancelled", "outcome", out)
		return out, err
	}
	if err != nil {
		log.Warn("cycle aborted", "error", err, "outcome", out)
	} else if out.Mutations() > 0 || out.Pending > 0 {
		log.Info("cycle complete", "outcome", out)
	} else {
		log.Debug("cycle complete; nothing to do")
	}

	s.record(ctx, e.Name, started, finished, out, err)
	return out, err
}

func (s *Supervisor) record(
	ctx context.Context,
	name string,
	started, finished time.Time,
	out reconcile.Outcome,
	cycleErr error,
) {
	if s.recorder == nil {
		return
	}

	c := store.Cycle{
		Synchronizer: name,
		StartedAt:    started,
		FinishedAt:   finished,
		Created:      out.Created,
		Completed:    out.Completed,
		Uncompleted:  out.Uncompleted,
		MarkedRead:   out.MarkedRead,
		Deleted:      out.Deleted,
		Pending:      out.Pending,
		Unchanged:    out.Unchanged,
	}
	if cycleErr != nil {
		c.Error = cycleErr.Error()
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordCycle(rctx, c); err != nil {
		s.logger.Warn("journaling cycle failed", "synchronizer", name, "error", err)
	}
}

func (s *Supervisor) closeSession(session Session) {
	if err := session.Close(); err != nil {
		s.logger.Warn("closing calendar session", "error", err)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
