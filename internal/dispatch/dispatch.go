// Package dispatch is the single entry point for executing one
// user-confirmed action against the external mail and calendar
// services. It validates, optionally fetches availability through a
// short-lived session, and performs exactly one effectful operation
// per confirmation.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/friday-assist/friday/internal/fault"
	"github.com/friday-assist/friday/internal/interval"
	"github.com/friday-assist/friday/internal/schedule"
	"github.com/friday-assist/friday/internal/session"
)

// Service names understood by the orchestrator's dialer.
const (
	ServiceCalendar = "calendar"
	ServiceGmail    = "gmail"
)

// Dispatcher executes confirmed actions for one user identity.
// Exactly one request is in flight at a time; effects are applied in
// confirmation order.
type Dispatcher struct {
	orch  *session.Orchestrator
	hours schedule.WorkingHours
	loc   *time.Location
}

// New builds a dispatcher over the given orchestrator and
// working-hours policy. loc is the canonical zone busy records are
// normalized into; nil means UTC.
func New(orch *session.Orchestrator, hours schedule.WorkingHours, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{orch: orch, hours: hours, loc: loc}
}

// Dispatch executes one confirmed request and returns its single
// terminal result. A confirmed effect is never silently re-issued:
// retry of transients happens inside the orchestrator, and exhaustion
// surfaces here as one reported failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if err := req.Validate(); err != nil {
		return failure(req.ID, err)
	}

	log.Printf("[dispatch] %s %s (%s)", req.Kind, req.target(), req.ID)

	switch req.Kind {
	case FindFreeSlots:
		return d.findFreeSlots(ctx, req)
	case SendReply:
		return d.sendReply(ctx, req)
	case CreateEvent:
		return d.createEvent(ctx, req)
	case UpdateEvent:
		return d.updateEvent(ctx, req)
	case DeleteEvent:
		return d.deleteEvent(ctx, req)
	}
	// Validate has already rejected unknown kinds.
	return failure(req.ID, fault.Newf(fault.Fatal, string(req.Kind), "unreachable kind"))
}

// fetchBusy reads raw busy records through a session of their own and
// normalizes them. Skipped records are reported, not fatal.
func (d *Dispatcher) fetchBusy(ctx context.Context, calendarID string, from, to time.Time) (interval.BusySet, error) {
	var records []interval.Record
	err := d.orch.Do(ctx, ServiceCalendar, "calendar.fetch_busy", calendarID, func(ctx context.Context, s *session.Session) error {
		var ferr error
		records, ferr = s.FetchBusyIntervals(ctx, calendarID, from, to)
		return ferr
	})
	if err != nil {
		return interval.BusySet{}, err
	}

	set, skipped := interval.Normalize(records, d.loc)
	if skipped > 0 {
		log.Printf("[dispatch] skipped %d malformed busy records from %s", skipped, calendarID)
	}
	return set, nil
}

func (d *Dispatcher) findFreeSlots(ctx context.Context, req Request) Result {
	busy, err := d.fetchBusy(ctx, req.CalendarID, req.From, req.To)
	if err != nil {
		return failure(req.ID, err)
	}

	slots, err := schedule.FreeSlots(busy, d.hours, req.From.In(d.loc), req.To.In(d.loc), req.MinDuration, req.Buffer)
	if err != nil {
		return failure(req.ID, fault.New(fault.Validation, string(req.Kind), err))
	}

	summary := fmt.Sprintf("found %d free slots of at least %s", len(slots), req.MinDuration)
	return success(req.ID, slots, summary)
}

func (d *Dispatcher) sendReply(ctx context.Context, req Request) Result {
	var result map[string]string
	err := d.orch.Do(ctx, ServiceGmail, "gmail.send_reply", req.ThreadID, func(ctx context.Context, s *session.Session) error {
		var terr error
		result, terr = s.ExecuteTool(ctx, "gmail.send_reply", map[string]string{
			"thread_id": req.ThreadID,
			"body":      req.Body,
		})
		return terr
	})
	if err != nil {
		// The connector sends and marks read in that order, so a
		// failure leaves the thread state unchanged.
		return failure(req.ID, err)
	}

	return success(req.ID, result, fmt.Sprintf("reply sent on thread %s and thread marked read", req.ThreadID))
}

func (d *Dispatcher) createEvent(ctx context.Context, req Request) Result {
	// Advisory read before the effect: an overlap with existing busy
	// time is a warning, never a blocking error. A failed read only
	// costs us the warning.
	warning := ""
	if busy, err := d.fetchBusy(ctx, req.CalendarID, req.Start, req.End); err == nil {
		window := interval.Interval{Start: req.Start.In(d.loc), End: req.End.In(d.loc)}
		if overlapping := busy.Overlapping(window); len(overlapping) > 0 {
			warning = fmt.Sprintf("conflicts with existing busy time %s", overlapping[0])
		}
	} else if fault.KindOf(err) == fault.PendingAuthorization {
		return failure(req.ID, err)
	} else {
		log.Printf("[dispatch] conflict check unavailable: %v", err)
	}

	var result map[string]string
	err := d.orch.Do(ctx, ServiceCalendar, "calendar.create_event", req.Title, func(ctx context.Context, s *session.Session) error {
		var terr error
		result, terr = s.ExecuteTool(ctx, "calendar.create_event", map[string]string{
			"calendar_id": req.CalendarID,
			"title":       req.Title,
			"start":       req.Start.Format(time.RFC3339),
			"end":         req.End.Format(time.RFC3339),
			"attendees":   strings.Join(req.Attendees, ","),
		})
		return terr
	})
	if err != nil {
		return failure(req.ID, err)
	}

	res := success(req.ID, result, fmt.Sprintf("event %q created with id %s", req.Title, result["event_id"]))
	res.Warning = warning
	return res
}

func (d *Dispatcher) updateEvent(ctx context.Context, req Request) Result {
	params := map[string]string{
		"calendar_id": req.CalendarID,
		"event_id":    req.EventID,
	}
	for field, value := range req.Changes {
		params[field] = value
	}

	var result map[string]string
	err := d.orch.Do(ctx, ServiceCalendar, "calendar.update_event", req.EventID, func(ctx context.Context, s *session.Session) error {
		var terr error
		result, terr = s.ExecuteTool(ctx, "calendar.update_event", params)
		return terr
	})
	if err != nil {
		return failure(req.ID, err)
	}

	return success(req.ID, result, fmt.Sprintf("event %s updated", req.EventID))
}

func (d *Dispatcher) deleteEvent(ctx context.Context, req Request) Result {
	err := d.orch.Do(ctx, ServiceCalendar, "calendar.delete_event", req.EventID, func(ctx context.Context, s *session.Session) error {
		_, terr := s.ExecuteTool(ctx, "calendar.delete_event", map[string]string{
			"calendar_id": req.CalendarID,
			"event_id":    req.EventID,
		})
		return terr
	})
	if err != nil {
		// Deleting an already-absent id means the desired end state is
		// already achieved.
		if fault.KindOf(err) == fault.NotFound {
			return success(req.ID, nil, fmt.Sprintf("event %s was already gone", req.EventID))
		}
		return failure(req.ID, err)
	}

	return success(req.ID, nil, fmt.Sprintf("event %s deleted", req.EventID))
}
