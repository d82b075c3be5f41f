package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friday-assist/friday/internal/fault"
	"github.com/friday-assist/friday/internal/interval"
)

// fakeConnector records calls and fails on demand.
type fakeConnector struct {
	fetchErr error
	toolErr  error
	records  []interval.Record
	result   map[string]string

	fetchCalls int
	toolCalls  int
	closed     bool
}

func (f *fakeConnector) FetchBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]interval.Record, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.records, nil
}

func (f *fakeConnector) ListUnreadMail(ctx context.Context, since time.Time, max int64) ([]MailHeadline, error) {
	return nil, nil
}

func (f *fakeConnector) ExecuteTool(ctx context.Context, tool string, params map[string]string) (map[string]string, error) {
	f.toolCalls++
	if f.toolErr != nil {
		return nil, f.toolErr
	}
	return f.result, nil
}

func (f *fakeConnector) Close() error {
	f.closed = true
	return nil
}

func newTestOrchestrator(dial DialFunc) *Orchestrator {
	o := New("dave@example.com", dial)
	o.Backoff = time.Millisecond
	o.sleep = func(time.Duration) {}
	return o
}

func TestWithSessionReleasesOnSuccessAndError(t *testing.T) {
	var conns []*fakeConnector
	dial := func(ctx context.Context, identity, service string) (Connector, error) {
		c := &fakeConnector{}
		conns = append(conns, c)
		return c, nil
	}
	o := newTestOrchestrator(dial)

	err := o.WithSession(context.Background(), "calendar", func(ctx context.Context, s *Session) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession failed: %v", err)
	}

	boom := errors.New("boom")
	err = o.WithSession(context.Background(), "calendar", func(ctx context.Context, s *Session) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}

	for i, c := range conns {
		if !c.closed {
			t.Errorf("connector %d was not closed", i)
		}
	}
}

func TestSessionStateMachine(t *testing.T) {
	dial := func(ctx context.Context, identity, service string) (Connector, error) {
		return &fakeConnector{}, nil
	}
	o := newTestOrchestrator(dial)

	var inside *Session
	err := o.WithSession(context.Background(), "calendar", func(ctx context.Context, s *Session) error {
		inside = s
		if got := s.State(); got != Authenticated {
			t.Errorf("expected authenticated inside fn, got %s", got)
		}
		if _, err := s.FetchBusyIntervals(ctx, "primary", time.Now(), time.Now().Add(time.Hour)); err != nil {
			return err
		}
		if got := s.State(); got != Authenticated {
			t.Errorf("expected authenticated after call, got %s", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession failed: %v", err)
	}
	if got := inside.State(); got != Closed {
		t.Errorf("expected closed after release, got %s", got)
	}
}

func TestSessionRejectsSecondActiveCall(t *testing.T) {
	dial := func(ctx context.Context, identity, service string) (Connector, error) {
		return &fakeConnector{}, nil
	}
	o := newTestOrchestrator(dial)

	err := o.WithSession(context.Background(), "calendar", func(ctx context.Context, s *Session) error {
		if err := s.begin(); err != nil {
			return err
		}
		// A second call while one is in flight must be refused.
		if err := s.begin(); err == nil {
			t.Error("expected second begin to fail while a call is active")
		}
		s.end()
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession failed: %v", err)
	}
}

func TestDialFailureIsTerminalForInstance(t *testing.T) {
	pending := &fault.Error{
		Kind: fault.PendingAuthorization,
		Op:   "calendar.connect",
		URL:  "https://accounts.example.com/authorize?x=1",
	}
	dials := 0
	dial := func(ctx context.Context, identity, service string) (Connector, error) {
		dials++
		return nil, pending
	}
	o := newTestOrchestrator(dial)

	err := o.Do(context.Background(), "calendar", "calendar.fetch_busy", "primary", func(ctx context.Context, s *Session) error {
		t.Fatal("fn must not run when dial fails")
		return nil
	})
	if fault.KindOf(err) != fault.PendingAuthorization {
		t.Fatalf("expected pending authorization, got %v", err)
	}
	if got := fault.AuthorizationURL(err); got != pending.URL {
		t.Errorf("expected authorization URL to surface, got %q", got)
	}
	// Authorization failures are not retried.
	if dials != 1 {
		t.Errorf("expected exactly 1 dial, got %d", dials)
	}
}

func TestDoRetriesTransientWithBackoff(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context, identity, service string) (Connector, error) {
		return &fakeConnector{}, nil
	}
	o := newTestOrchestrator(dial)

	var waits []time.Duration
	o.sleep = func(d time.Duration) { waits = append(waits, d) }

	err := o.Do(context.Background(), "gmail", "gmail.send_reply", "thread-9", func(ctx context.Context, s *Session) error {
		attempts++
		if attempts < 3 {
			return fault.Newf(fault.Transient, "gmail.send_reply", "connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(waits) != 2 || waits[0] >= waits[1] {
		t.Errorf("expected two increasing backoff waits, got %v", waits)
	}
}

func TestDoEscalatesAfterRetryExhaustion(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context, identity, service string) (Connector, error) {
		return &fakeConnector{}, nil
	}
	o := newTestOrchestrator(dial)

	err := o.Do(context.Background(), "calendar", "calendar.create_event", "evt-1", func(ctx context.Context, s *Session) error {
		attempts++
		return fault.Newf(fault.Transient, "calendar.create_event", "503 backend unavailable")
	})
	if err == nil {
		t.Fatal("expected escalated failure")
	}
	if attempts != o.MaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", o.MaxRetries+1, attempts)
	}

	var fe *fault.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if fe.Op != "calendar.create_event" || fe.Target != "evt-1" {
		t.Errorf("escalated failure must name action and target, got op=%q target=%q", fe.Op, fe.Target)
	}
}

func TestDoDoesNotRetryNonTransient(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context, identity, service string) (Connector, error) {
		return &fakeConnector{}, nil
	}
	o := newTestOrchestrator(dial)

	err := o.Do(context.Background(), "calendar", "calendar.update_event", "evt-404", func(ctx context.Context, s *Session) error {
		attempts++
		return fault.Newf(fault.NotFound, "calendar.update_event", "no such event")
	})
	if fault.KindOf(err) != fault.NotFound {
		t.Fatalf("expected not-found to pass through, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts)
	}
}
