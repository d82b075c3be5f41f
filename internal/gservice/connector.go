package gservice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/friday-assist/friday/internal/fault"
	"github.com/friday-assist/friday/internal/interval"
	"github.com/friday-assist/friday/internal/session"
)

// Connector is one authenticated handle to a single Google service. It
// is minted per session by Dialer and discarded when the session
// closes.
type Connector struct {
	service string
	authURL string
	cal     *calendar.Service
	mail    *gmail.Service
}

// Dialer returns the session.DialFunc for the given credentials
// directory. Dialing a service with no stored token surfaces
// PendingAuthorization with the URL to visit; no polling for
// completion is done.
func Dialer(credentialsDir string) session.DialFunc {
	return func(ctx context.Context, identity, service string) (session.Connector, error) {
		cfg, err := oauthConfig(credentialsDir, service)
		if err != nil {
			return nil, fault.New(fault.Fatal, service+".connect", err)
		}

		tok, err := loadToken(tokenPath(credentialsDir, service))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, pendingAuth(cfg, service)
			}
			return nil, fault.New(fault.Fatal, service+".connect", err)
		}

		client := cfg.Client(ctx, tok)
		conn := &Connector{
			service: service,
			authURL: cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline),
		}
		switch service {
		case ServiceCalendar:
			conn.cal, err = calendar.NewService(ctx, option.WithHTTPClient(client))
		case ServiceGmail:
			conn.mail, err = gmail.NewService(ctx, option.WithHTTPClient(client))
		default:
			return nil, fault.Newf(fault.Fatal, service+".connect", "unknown service %q", service)
		}
		if err != nil {
			return nil, classify(service+".connect", err)
		}
		return conn, nil
	}
}

// Close releases the connector. The underlying HTTP client has no
// long-lived resources of its own; the session layer calls this on
// every exit path regardless.
func (c *Connector) Close() error {
	c.cal = nil
	c.mail = nil
	return nil
}

// FetchBusyIntervals queries the free/busy endpoint and returns the
// raw busy records for the normalizer.
func (c *Connector) FetchBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]interval.Record, error) {
	const op = "calendar.fetch_busy"
	if c.cal == nil {
		return nil, fault.Newf(fault.Fatal, op, "connector is not a calendar session")
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	req := &calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}
	resp, err := c.cal.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(op, err).WithTarget(calendarID)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fault.Newf(fault.Parse, op, "calendar %q missing from free/busy response", calendarID)
	}

	records := make([]interval.Record, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		records = append(records, interval.Record{Start: p.Start, End: p.End})
	}
	return records, nil
}

// ListUnreadMail returns typed headlines for unread messages received
// since the given time.
func (c *Connector) ListUnreadMail(ctx context.Context, since time.Time, max int64) ([]session.MailHeadline, error) {
	const op = "gmail.list_unread"
	if c.mail == nil {
		return nil, fault.Newf(fault.Fatal, op, "connector is not a gmail session")
	}
	if max <= 0 {
		max = 10
	}

	query := fmt.Sprintf("is:unread after:%d", since.Unix())
	list, err := c.mail.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(op, err)
	}

	headlines := make([]session.MailHeadline, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg, err := c.mail.Users.Messages.Get("me", m.Id).
			Format("metadata").MetadataHeaders("Subject", "From").
			Context(ctx).Do()
		if err != nil {
			return nil, c.classify(op, err).WithTarget(m.Id)
		}
		headlines = append(headlines, session.MailHeadline{
			ID:       msg.Id,
			ThreadID: msg.ThreadId,
			From:     headerValue(msg.Payload, "From"),
			Subject:  headerValue(msg.Payload, "Subject"),
		})
	}
	return headlines, nil
}

// ExecuteTool performs one named operation. Parameters are decoded and
// validated here so nothing loosely typed flows past this boundary.
func (c *Connector) ExecuteTool(ctx context.Context, tool string, params map[string]string) (map[string]string, error) {
	switch tool {
	case "calendar.create_event":
		return c.createEvent(ctx, params)
	case "calendar.update_event":
		return c.updateEvent(ctx, params)
	case "calendar.delete_event":
		return c.deleteEvent(ctx, params)
	case "gmail.send_reply":
		return c.sendReply(ctx, params)
	}
	return nil, fault.Newf(fault.Validation, tool, "unknown tool %q", tool)
}

func (c *Connector) createEvent(ctx context.Context, params map[string]string) (map[string]string, error) {
	const op = "calendar.create_event"
	if c.cal == nil {
		return nil, fault.Newf(fault.Fatal, op, "connector is not a calendar session")
	}

	title, err := requireParam(op, params, "title")
	if err != nil {
		return nil, err
	}
	start, err := timeParam(op, params, "start")
	if err != nil {
		return nil, err
	}
	end, err := timeParam(op, params, "end")
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary: title,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	for _, email := range splitAttendees(params["attendees"]) {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := c.cal.Events.Insert(calendarIDParam(params), event).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(op, err).WithTarget(title)
	}

	return map[string]string{
		"event_id":  created.Id,
		"html_link": created.HtmlLink,
	}, nil
}

func (c *Connector) updateEvent(ctx context.Context, params map[string]string) (map[string]string, error) {
	const op = "calendar.update_event"
	if c.cal == nil {
		return nil, fault.Newf(fault.Fatal, op, "connector is not a calendar session")
	}

	eventID, err := requireParam(op, params, "event_id")
	if err != nil {
		return nil, err
	}

	patch := &calendar.Event{}
	if title, ok := params["title"]; ok && title != "" {
		patch.Summary = title
	}
	if _, ok := params["start"]; ok {
		start, err := timeParam(op, params, "start")
		if err != nil {
			return nil, err
		}
		patch.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
	}
	if _, ok := params["end"]; ok {
		end, err := timeParam(op, params, "end")
		if err != nil {
			return nil, err
		}
		patch.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)}
	}

	updated, err := c.cal.Events.Patch(calendarIDParam(params), eventID, patch).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(op, err).WithTarget(eventID)
	}

	snapshot := map[string]string{
		"event_id": updated.Id,
		"title":    updated.Summary,
	}
	if updated.Start != nil {
		snapshot["start"] = updated.Start.DateTime
	}
	if updated.End != nil {
		snapshot["end"] = updated.End.DateTime
	}
	return snapshot, nil
}

func (c *Connector) deleteEvent(ctx context.Context, params map[string]string) (map[string]string, error) {
	const op = "calendar.delete_event"
	if c.cal == nil {
		return nil, fault.Newf(fault.Fatal, op, "connector is not a calendar session")
	}

	eventID, err := requireParam(op, params, "event_id")
	if err != nil {
		return nil, err
	}

	if err := c.cal.Events.Delete(calendarIDParam(params), eventID).Context(ctx).Do(); err != nil {
		return nil, c.classify(op, err).WithTarget(eventID)
	}
	return map[string]string{}, nil
}

func (c *Connector) sendReply(ctx context.Context, params map[string]string) (map[string]string, error) {
	const op = "gmail.send_reply"
	if c.mail == nil {
		return nil, fault.Newf(fault.Fatal, op, "connector is not a gmail session")
	}

	threadID, err := requireParam(op, params, "thread_id")
	if err != nil {
		return nil, err
	}
	body, err := requireParam(op, params, "body")
	if err != nil {
		return nil, err
	}

	thread, err := c.mail.Users.Threads.Get("me", threadID).
		Format("metadata").MetadataHeaders("Subject", "From", "Message-ID").
		Context(ctx).Do()
	if err != nil {
		return nil, c.classify(op, err).WithTarget(threadID)
	}
	if len(thread.Messages) == 0 {
		return nil, fault.Newf(fault.NotFound, op, "thread has no messages").WithTarget(threadID)
	}

	last := thread.Messages[len(thread.Messages)-1].Payload
	raw := buildReply(
		headerValue(last, "From"),
		replySubject(headerValue(last, "Subject")),
		headerValue(last, "Message-ID"),
		body,
	)

	sent, err := c.mail.Users.Messages.Send("me", &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
		ThreadId: threadID,
	}).Context(ctx).Do()
	if err != nil {
		// Nothing was sent, so the thread stays unread and unchanged.
		return nil, c.classify(op, err).WithTarget(threadID)
	}

	// Marking read only after a successful send keeps the "replied
	// implies read" contract.
	_, err = c.mail.Users.Threads.Modify("me", threadID, &gmail.ModifyThreadRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(op, err).WithTarget(threadID)
	}

	return map[string]string{
		"thread_id":  threadID,
		"message_id": sent.Id,
	}, nil
}

// buildReply assembles a minimal RFC 822 reply message.
func buildReply(to, subject, inReplyTo, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if inReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", inReplyTo)
		fmt.Fprintf(&b, "References: %s\r\n", inReplyTo)
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// replySubject prefixes "Re: " unless the subject already carries it.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func headerValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func calendarIDParam(params map[string]string) string {
	if id := params["calendar_id"]; id != "" {
		return id
	}
	return "primary"
}

func requireParam(op string, params map[string]string, key string) (string, error) {
	value := strings.TrimSpace(params[key])
	if value == "" {
		return "", fault.Newf(fault.Validation, op, "missing required parameter %q", key)
	}
	return value, nil
}

func timeParam(op string, params map[string]string, key string) (time.Time, error) {
	raw, err := requireParam(op, params, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fault.Newf(fault.Validation, op, "parameter %q is not an RFC 3339 timestamp: %v", key, err)
	}
	return t, nil
}

func splitAttendees(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if email := strings.TrimSpace(part); email != "" {
			out = append(out, email)
		}
	}
	return out
}

// classify attaches the connector's authorization URL when a call
// comes back unauthorized, so the caller can surface it.
func (c *Connector) classify(op string, err error) *fault.Error {
	fe := classify(op, err)
	if fe.Kind == fault.PendingAuthorization && fe.URL == "" {
		fe.URL = c.authURL
	}
	return fe
}

// classify maps an error from the Google client into the fault
// taxonomy. Status codes decide retryability; plain network errors are
// transient.
func classify(op string, err error) *fault.Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401 || gerr.Code == 403:
			return &fault.Error{Kind: fault.PendingAuthorization, Op: op, Err: err}
		case gerr.Code == 404 || gerr.Code == 410:
			return fault.New(fault.NotFound, op, err)
		case gerr.Code == 409:
			return fault.New(fault.Conflict, op, err)
		case gerr.Code == 429 || gerr.Code >= 500:
			return fault.New(fault.Transient, op, err)
		case gerr.Code == 400:
			return fault.New(fault.Validation, op, err)
		}
		return fault.New(fault.Fatal, op, err)
	}

	var uerr *url.Error
	var nerr net.Error
	if errors.As(err, &uerr) || errors.As(err, &nerr) {
		return fault.New(fault.Transient, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.New(fault.Transient, op, err)
	}

	return fault.New(fault.Fatal, op, err)
}
