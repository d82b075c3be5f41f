// Package fault defines the error taxonomy shared by the session and
// dispatch layers. Every failure that escapes a component is classified
// with a Kind so callers can decide between retrying, surfacing an
// authorization URL, or reporting a terminal failure.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// Parse marks malformed time or interval data. Parse faults are
	// absorbed locally by skipping the record; they should not escape
	// the normalizer.
	Parse Kind = "parse"

	// Validation marks missing or malformed action fields, caught
	// before any external call is made.
	Validation Kind = "validation"

	// PendingAuthorization means no valid authorization exists for the
	// (identity, service) pair. The error carries an out-of-band
	// authorization URL and the action aborts without side effects.
	PendingAuthorization Kind = "pending_authorization"

	// Transient marks a retryable network or service fault.
	Transient Kind = "transient"

	// NotFound marks a stale identifier.
	NotFound Kind = "not_found"

	// Conflict marks an overlap with existing busy time. Reported as a
	// warning alongside a successful result, never blocking.
	Conflict Kind = "conflict"

	// Fatal marks anything unexpected and unrecoverable.
	Fatal Kind = "fatal"
)

// Error is a classified failure naming the action and target object.
type Error struct {
	Kind   Kind
	Op     string // action that failed, e.g. "calendar.create_event"
	Target string // object id the action was aimed at, if any
	URL    string // authorization URL, only for PendingAuthorization
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Target != "" {
		msg += " (" + e.Target + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithTarget returns a copy of e naming the target object id.
func (e *Error) WithTarget(target string) *Error {
	clone := *e
	clone.Target = target
	return &clone
}

// KindOf returns the Kind carried by err, or Fatal if err carries none.
// A nil err has no kind and returns the empty string.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Fatal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err may be retried. Only transient faults
// qualify; authorization, not-found and validation failures never do.
func Retryable(err error) bool {
	return KindOf(err) == Transient
}

// AuthorizationURL extracts the authorization URL from a
// PendingAuthorization error, or "" if err is not one.
func AuthorizationURL(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == PendingAuthorization {
		return fe.URL
	}
	return ""
}
