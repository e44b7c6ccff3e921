package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhle/todosync/internal/calendar"
	"github.com/nhle/todosync/internal/config"
	"github.com/nhle/todosync/internal/reconcile"
	"github.com/nhle/todosync/internal/store"
)

type syncFunc func(ctx context.Context, cal calendar.Store) (reconcile.Outcome, error)

func (f syncFunc) Reconcile(ctx context.Context, cal calendar.Store) (reconcile.Outcome, error) {
	return f(ctx, cal)
}

type fakeSession struct {
	closed *atomic.Int32
}

func (s fakeSession) Store() calendar.Store { return nil }

func (s fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

type connector struct {
	calls  atomic.Int32
	closed atomic.Int32
	err    error
}

func (c *connector) connect(context.Context) (Session, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return fakeSession{closed: &c.closed}, nil
}

type recorder struct {
	mu     gosync.Mutex
	cycles []store.Cycle
}

func (r *recorder) RecordCycle(_ context.Context, c store.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, c)
	return nil
}

func (r *recorder) snapshot() []store.Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Cycle(nil), r.cycles...)
}

func TestRunRestartsAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	syncer := syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
		if calls.Add(1) == 1 {
			return reconcile.Outcome{Created: 1}, errors.New("connection reset")
		}
		cancel()
		return reconcile.Outcome{Deleted: 2}, nil
	})

	conn := &connector{}
	rec := &recorder{}
	s := New(conn.connect, 10*time.Millisecond,
		[]Entry{{Name: "github.notifications", Synchronizer: syncer, Interval: time.Hour}},
		WithRecorder(rec))

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := conn.calls.Load(); got != 2 {
		t.Errorf("connect calls = %d; want 2", got)
	}
	if got := conn.closed.Load(); got != 2 {
		t.Errorf("sessions closed = %d; want 2", got)
	}
	if s.State() != StateStopped {
		t.Errorf("State = %v; want stopped", s.State())
	}

	cycles := rec.snapshot()
	if len(cycles) != 2 {
		t.Fatalf("recorded %d cycles; want 2", len(cycles))
	}
	if cycles[0].Error != "connection reset" || cycles[0].Created != 1 {
		t.Errorf("first cycle = %+v", cycles[0])
	}
	if cycles[1].Failed() || cycles[1].Deleted != 2 || cycles[1].Synchronizer != "github.notifications" {
		t.Errorf("second cycle = %+v", cycles[1])
	}
}

func TestRunStopsOnFatalError(t *testing.T) {
	conn := &connector{err: fmt.Errorf("selecting calendar: %w", calendar.ErrCalendarNotFound)}
	noop := syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
		return reconcile.Outcome{}, nil
	})
	s := New(conn.connect, time.Hour, []Entry{{Name: "n", Synchronizer: noop, Interval: time.Hour}})

	err := s.Run(context.Background())
	if !errors.Is(err, calendar.ErrCalendarNotFound) {
		t.Fatalf("Run err = %v; want ErrCalendarNotFound", err)
	}
	if got := conn.calls.Load(); got != 1 {
		t.Errorf("connect calls = %d; want 1", got)
	}
	if s.State() != StateStopped {
		t.Errorf("State = %v; want stopped", s.State())
	}
}

func TestRunCancelDuringCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failing := syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
		return reconcile.Outcome{}, errors.New("server error")
	})
	conn := &connector{}
	s := New(conn.connect, time.Hour, []Entry{{Name: "n", Synchronizer: failing, Interval: time.Hour}})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.State() != StateCoolingDown {
		if time.Now().After(deadline) {
			t.Fatalf("supervisor never cooled down; state %v", s.State())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop within a second of cancellation")
	}
	if got := conn.closed.Load(); got != 1 {
		t.Errorf("sessions closed = %d; want 1", got)
	}
}

func TestFailureCancelsSiblings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var aCalls, bCalls atomic.Int32
	a := syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
		if aCalls.Add(1) == 1 {
			return reconcile.Outcome{}, errors.New("boom")
		}
		cancel()
		return reconcile.Outcome{}, nil
	})
	b := syncFunc(func(ctx context.Context, _ calendar.Store) (reconcile.Outcome, error) {
		bCalls.Add(1)
		<-ctx.Done()
		return reconcile.Outcome{}, ctx.Err()
	})

	conn := &connector{}
	rec := &recorder{}
	s := New(conn.connect, 10*time.Millisecond, []Entry{
		{Name: "a", Synchronizer: a, Interval: time.Hour},
		{Name: "b", Synchronizer: b, Interval: time.Hour},
	}, WithRecorder(rec))

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := bCalls.Load(); got != 2 {
		t.Errorf("b ran %d times; want one run per supervisor iteration", got)
	}
	if got := conn.calls.Load(); got != 2 {
		t.Errorf("connect calls = %d; want 2", got)
	}

	// Cancelled cycles of b are not journaled as failures.
	cycles := rec.snapshot()
	if len(cycles) != 2 {
		t.Fatalf("journaled %d cycles; want 2: %+v", len(cycles), cycles)
	}
	for _, c := range cycles {
		if c.Synchronizer != "a" {
			t.Errorf("journaled cycle of %q: %+v", c.Synchronizer, c)
		}
	}
	if cycles[0].Error != "boom" || cycles[1].Error != "" {
		t.Errorf("errors = %q, %q; want boom then none", cycles[0].Error, cycles[1].Error)
	}
}

func TestCyclesNeverOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlight, maxInFlight, calls atomic.Int32
	syncer := syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(2 * time.Millisecond)
		if calls.Add(1) == 5 {
			cancel()
		}
		return reconcile.Outcome{}, nil
	})

	s := New((&connector{}).connect, time.Hour,
		[]Entry{{Name: "n", Synchronizer: syncer, Interval: time.Millisecond}})
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent cycles = %d; want 1", maxInFlight.Load())
	}
}

func TestRunOnce(t *testing.T) {
	conn := &connector{}
	s := New(conn.connect, time.Hour, []Entry{
		{Name: "a", Synchronizer: syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
			return reconcile.Outcome{Created: 3}, nil
		})},
		{Name: "b", Synchronizer: syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
			return reconcile.Outcome{MarkedRead: 1}, nil
		})},
	})

	outcomes, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcomes["a"].Created != 3 || outcomes["b"].MarkedRead != 1 {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if conn.calls.Load() != 1 || conn.closed.Load() != 1 {
		t.Errorf("connect/close = %d/%d; want 1/1", conn.calls.Load(), conn.closed.Load())
	}
}

func TestRunOnceError(t *testing.T) {
	s := New((&connector{}).connect, time.Hour, []Entry{
		{Name: "a", Synchronizer: syncFunc(func(context.Context, calendar.Store) (reconcile.Outcome, error) {
			return reconcile.Outcome{}, reconcile.ErrUnknownReason
		})},
	})

	_, err := s.RunOnce(context.Background())
	if !errors.Is(err, reconcile.ErrUnknownReason) {
		t.Fatalf("err = %v; want ErrUnknownReason", err)
	}
}

func TestNoSynchronizers(t *testing.T) {
	s := New((&connector{}).connect, time.Hour, nil)
	if err := s.Run(context.Background()); !errors.Is(err, ErrNoSynchronizers) {
		t.Errorf("Run err = %v", err)
	}
	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrNoSynchronizers) {
		t.Errorf("RunOnce err = %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("x: %w", config.ErrMissing), true},
		{fmt.Errorf("x: %w", config.ErrTypeMismatch), true},
		{fmt.Errorf("x: %w", config.ErrInvalid), true},
		{calendar.ErrCalendarNotFound, true},
		{reconcile.ErrDuplicateIdentifier, false},
		{errors.New("timeout"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.want {
			t.Errorf("IsFatal(%v) = %v; want %v", tt.err, got, tt.want)
		}
	}
}
