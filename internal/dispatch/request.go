package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/friday-assist/friday/internal/fault"
)

// Kind discriminates the action union.
type Kind string

const (
	FindFreeSlots Kind = "find_free_slots"
	SendReply     Kind = "send_reply"
	CreateEvent   Kind = "create_event"
	UpdateEvent   Kind = "update_event"
	DeleteEvent   Kind = "delete_event"
)

// Request is one user-confirmed action. Only the fields of its Kind
// are consulted; Validate enforces the kind-specific requirements
// before anything external is touched.
type Request struct {
	ID   string
	Kind Kind

	// FindFreeSlots
	CalendarID  string
	From        time.Time
	To          time.Time
	MinDuration time.Duration
	Buffer      time.Duration

	// SendReply
	ThreadID string
	Body     string

	// CreateEvent
	Title     string
	Start     time.Time
	End       time.Time
	Attendees []string

	// UpdateEvent, DeleteEvent
	EventID string
	Changes map[string]string
}

// Validate checks the required fields for the request's kind.
func (r *Request) Validate() error {
	switch r.Kind {
	case FindFreeSlots:
		if r.CalendarID == "" {
			return validationErr(r.Kind, "calendar id is required")
		}
		if r.From.IsZero() || r.To.IsZero() || !r.From.Before(r.To) {
			return validationErr(r.Kind, "range start must precede range end")
		}
		if r.MinDuration <= 0 {
			return validationErr(r.Kind, "minimum duration must be positive")
		}
		if r.Buffer < 0 {
			return validationErr(r.Kind, "buffer must not be negative")
		}
	case SendReply:
		if r.ThreadID == "" {
			return validationErr(r.Kind, "thread id is required")
		}
		if strings.TrimSpace(r.Body) == "" {
			return validationErr(r.Kind, "reply body is required")
		}
	case CreateEvent:
		if strings.TrimSpace(r.Title) == "" {
			return validationErr(r.Kind, "event title is required")
		}
		if r.Start.IsZero() || r.End.IsZero() || !r.Start.Before(r.End) {
			return validationErr(r.Kind, "event start must precede event end")
		}
		if len(r.Attendees) == 0 {
			return validationErr(r.Kind, "at least one attendee is required")
		}
	case UpdateEvent:
		if r.EventID == "" {
			return validationErr(r.Kind, "event id is required")
		}
		if len(r.Changes) == 0 {
			return validationErr(r.Kind, "at least one changed field is required")
		}
	case DeleteEvent:
		if r.EventID == "" {
			return validationErr(r.Kind, "event id is required")
		}
	default:
		return validationErr(r.Kind, "unknown action kind")
	}
	return nil
}

// target returns the object id this request acts on, for failure
// reporting.
func (r *Request) target() string {
	switch r.Kind {
	case SendReply:
		return r.ThreadID
	case UpdateEvent, DeleteEvent:
		return r.EventID
	case FindFreeSlots:
		return r.CalendarID
	}
	return ""
}

func validationErr(kind Kind, msg string) error {
	return fault.Newf(fault.Validation, string(kind), "%s", msg)
}

// Result is the single terminal outcome of one dispatched request,
// consumed by the UI and notification collaborators.
type Result struct {
	RequestID string
	OK        bool

	// ErrKind and AuthURL are set only on failure.
	ErrKind fault.Kind
	AuthURL string

	// Payload carries the kind-specific success value.
	Payload interface{}

	// Warning is a non-fatal note alongside a successful result, e.g.
	// a conflict with existing busy time.
	Warning string

	// Summary is a human-readable account of what happened.
	Summary string
}

func success(requestID string, payload interface{}, summary string) Result {
	return Result{RequestID: requestID, OK: true, Payload: payload, Summary: summary}
}

func failure(requestID string, err error) Result {
	return Result{
		RequestID: requestID,
		OK:        false,
		ErrKind:   fault.KindOf(err),
		AuthURL:   fault.AuthorizationURL(err),
		Summary:   fmt.Sprintf("action failed: %v", err),
	}
}
