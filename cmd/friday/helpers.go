package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/friday-assist/friday/internal/config"
	"github.com/friday-assist/friday/internal/dispatch"
	"github.com/friday-assist/friday/internal/fault"
	"github.com/friday-assist/friday/internal/gservice"
	"github.com/friday-assist/friday/internal/interval"
	"github.com/friday-assist/friday/internal/session"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(config.ExpandPath(configPath))
	if err != nil {
		return nil, err
	}
	if cfg.User.Email == "" {
		return nil, fmt.Errorf("no email configured; run 'friday setup' first")
	}
	return cfg, nil
}

func newOrchestrator(cfg *config.Config) *session.Orchestrator {
	dir := config.ExpandPath(cfg.Google.CredentialsDir)
	return session.New(cfg.User.Email, gservice.Dialer(dir))
}

func newDispatcher(cfg *config.Config) (*dispatch.Dispatcher, *time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	hours, err := cfg.WorkingHours()
	if err != nil {
		return nil, nil, err
	}
	return dispatch.New(newOrchestrator(cfg), hours, loc), loc, nil
}

// confirm asks a yes/no question and reads one line. Anything other
// than y/yes declines.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// promptString asks for a value, returning the default when the user
// just presses enter.
func promptString(in *bufio.Reader, out io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	line, _ := in.ReadString('\n')
	if value := strings.TrimSpace(line); value != "" {
		return value
	}
	return def
}

// parseDay parses a YYYY-MM-DD date as midnight in loc. An empty
// string means today.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %v", s, err)
	}
	return t, nil
}

// parseWhen parses an event timestamp: RFC 3339 or a local
// "YYYY-MM-DD HH:MM" in loc.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (use RFC 3339 or \"YYYY-MM-DD HH:MM\"): %v", s, err)
	}
	return t, nil
}

// printResult reports a dispatch result to the user. A pending
// authorization gets the full walk-through; everything else is the
// result's own summary.
func printResult(out io.Writer, res dispatch.Result) {
	if res.OK {
		fmt.Fprintf(out, "Done. %s\n", res.Summary)
		if res.Warning != "" {
			fmt.Fprintf(out, "One thing to note: %s\n", res.Warning)
		}
		return
	}

	if res.ErrKind == fault.PendingAuthorization && res.AuthURL != "" {
		fmt.Fprintln(out, "I need your authorization before I can do that.")
		fmt.Fprintln(out, "Visit this URL, approve access, and copy the code:")
		fmt.Fprintf(out, "\n  %s\n\n", res.AuthURL)
		fmt.Fprintln(out, "Then run: friday auth code <calendar|gmail> <code>")
		fmt.Fprintln(out, "Nothing has been changed; ask me again once that's done.")
		return
	}

	fmt.Fprintf(out, "I'm afraid that didn't work: %s\n", res.Summary)
}

func printSlots(out io.Writer, slots []interval.Interval) {
	if len(slots) == 0 {
		fmt.Fprintln(out, "No free slots in that window.")
		return
	}
	for _, s := range slots {
		fmt.Fprintf(out, "  %s to %s (%s)\n",
			s.Start.Format("Mon Jan 2 15:04"), s.End.Format("15:04"), s.Duration())
	}
}
