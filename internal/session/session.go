// Package session owns the lifecycle of ephemeral authenticated handles
// to external services. A session is opened immediately before a call
// and released immediately after, so nothing is ever held across user
// think-time where an idle timeout could invalidate it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/friday-assist/friday/internal/fault"
	"github.com/friday-assist/friday/internal/interval"
)

// State is the lifecycle position of one session instance.
type State int

const (
	// Unconnected is the initial state before any connection attempt.
	Unconnected State = iota
	// Connecting covers the dial and authentication handshake.
	Connecting
	// Authenticated means the session is ready for exactly one call at
	// a time.
	Authenticated
	// Active means a call is in flight on this session.
	Active
	// Failed is terminal for this instance; recovery requires a new
	// session.
	Failed
	// Closed means the session was released. Always reached, including
	// on error paths.
	Closed
)

func (s State) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connecting:
		return "connecting"
	case Authenticated:
		return "authenticated"
	case Active:
		return "active"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MailHeadline is the typed summary of one unread message, validated
// at the connector boundary so nothing loosely-typed flows upward.
type MailHeadline struct {
	ID       string
	ThreadID string
	From     string
	Subject  string
}

// Connector is the service-access collaborator behind a session. A
// Connector is minted fresh per session and discarded with it.
type Connector interface {
	// FetchBusyIntervals reads raw busy-time records for a calendar
	// over the given range.
	FetchBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]interval.Record, error)

	// ListUnreadMail reads headlines of unread messages received since
	// the given time, newest first, at most max of them.
	ListUnreadMail(ctx context.Context, since time.Time, max int64) ([]MailHeadline, error)

	// ExecuteTool performs one named operation against the service and
	// returns its structured result.
	ExecuteTool(ctx context.Context, tool string, params map[string]string) (map[string]string, error)

	// Close releases the underlying connection.
	Close() error
}

// DialFunc mints an authenticated Connector for one service on behalf
// of the orchestrator's user identity. It returns a
// fault.PendingAuthorization error carrying an authorization URL when
// no prior authorization exists for the (identity, service) pair.
type DialFunc func(ctx context.Context, identity, service string) (Connector, error)

// Session is an ephemeral handle scoped to one user identity and one
// external service, owned exclusively by the call that created it.
type Session struct {
	service string
	conn    Connector

	mu    sync.Mutex
	state State
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Service returns the name of the external service this session talks to.
func (s *Session) Service() string {
	return s.service
}

// begin marks the session Active for one in-flight call.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Authenticated:
		s.state = Active
		return nil
	case Active:
		return fault.Newf(fault.Fatal, "session", "call already active on %s session", s.service)
	default:
		return fault.Newf(fault.Fatal, "session", "%s session is %s, not authenticated", s.service, s.state)
	}
}

// end returns the session to Authenticated after a call completes.
func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Active {
		s.state = Authenticated
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// FetchBusyIntervals reads busy records through the session's connector.
func (s *Session) FetchBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]interval.Record, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()
	return s.conn.FetchBusyIntervals(ctx, calendarID, from, to)
}

// ListUnreadMail reads unread message headlines through the session's
// connector.
func (s *Session) ListUnreadMail(ctx context.Context, since time.Time, max int64) ([]MailHeadline, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()
	return s.conn.ListUnreadMail(ctx, since, max)
}

// ExecuteTool performs one named operation through the session's
// connector.
func (s *Session) ExecuteTool(ctx context.Context, tool string, params map[string]string) (map[string]string, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()
	return s.conn.ExecuteTool(ctx, tool, params)
}

// Orchestrator opens and releases sessions around individual calls for
// exactly one user identity. Sessions are never shared or pooled;
// correctness over latency.
type Orchestrator struct {
	identity string
	dial     DialFunc

	// MaxRetries bounds how often a transient failure is retried
	// before being escalated.
	MaxRetries int
	// Backoff is the base delay between retries; attempt n waits n
	// times this long.
	Backoff time.Duration

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New creates an orchestrator for one user identity.
func New(identity string, dial DialFunc) *Orchestrator {
	return &Orchestrator{
		identity:   identity,
		dial:       dial,
		MaxRetries: 2,
		Backoff:    time.Second,
		sleep:      time.Sleep,
	}
}

// Identity returns the user identity the orchestrator acts for.
func (o *Orchestrator) Identity() string {
	return o.identity
}

// WithSession opens a fresh session for the service, runs fn, and
// releases the session on every exit path. The session must not escape
// fn.
func (o *Orchestrator) WithSession(ctx context.Context, service string, fn func(ctx context.Context, s *Session) error) error {
	sess := &Session{service: service, state: Unconnected}

	sess.setState(Connecting)
	conn, err := o.dial(ctx, o.identity, service)
	if err != nil {
		sess.setState(Failed)
		return err
	}
	sess.conn = conn
	sess.setState(Authenticated)

	defer func() {
		sess.setState(Closed)
		// Release failures are not actionable; the connection is gone
		// either way.
		_ = conn.Close()
	}()

	return fn(ctx, sess)
}

// Do runs fn in a fresh session, retrying transient failures with
// backoff up to MaxRetries. Each retry constructs a new session; a
// failed instance is never reused. Exhaustion escalates as a single
// failure naming the operation and target.
func (o *Orchestrator) Do(ctx context.Context, service, op, target string, fn func(ctx context.Context, s *Session) error) error {
	var lastErr error
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		if attempt > 0 {
			o.sleep(time.Duration(attempt) * o.Backoff)
		}
		lastErr = o.WithSession(ctx, service, fn)
		if lastErr == nil {
			return nil
		}
		if !fault.Retryable(lastErr) {
			return lastErr
		}
	}
	return fault.New(fault.Transient, op, fmt.Errorf("giving up after %d attempts: %w", o.MaxRetries+1, lastErr)).WithTarget(target)
}
