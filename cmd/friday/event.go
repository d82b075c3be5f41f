package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/friday-assist/friday/internal/dispatch"
)

var (
	eventCalendar  string
	eventTitle     string
	eventStart     string
	eventEnd       string
	eventAttendees string
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Create, update or delete calendar events",
	Long: `Calendar changes, with your confirmation first.

  create   Schedule a new event
  update   Change an existing event
  delete   Cancel an event

If a new event overlaps existing busy time I'll mention it, but I
won't stand in your way.`,
}

var eventCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Schedule a new event",
	Long: `Schedule a new event. Times are RFC 3339 or a local
"YYYY-MM-DD HH:MM".

Example:
  friday event create --title "Planning sync" \
    --start "2026-06-02 14:00" --end "2026-06-02 15:00" \
    --attendees dave@example.com,frank@example.com`,
	RunE: runEventCreate,
}

var eventUpdateCmd = &cobra.Command{
	Use:   "update <event-id>",
	Short: "Change an existing event",
	Long: `Change the title or times of an existing event. Only the
flags you pass are touched.

Example:
  friday event update evt-42 --start "2026-06-02 15:00" --end "2026-06-02 16:00"`,
	Args: cobra.ExactArgs(1),
	RunE: runEventUpdate,
}

var eventDeleteCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Cancel an event",
	Long: `Cancel an event. If it's already gone, that's the outcome
you wanted, so I'll report success.`,
	Args: cobra.ExactArgs(1),
	RunE: runEventDelete,
}

func init() {
	eventCmd.PersistentFlags().StringVar(&eventCalendar, "calendar", "primary", "Calendar to act on")

	eventCreateCmd.Flags().StringVar(&eventTitle, "title", "", "Event title")
	eventCreateCmd.Flags().StringVar(&eventStart, "start", "", "Event start time")
	eventCreateCmd.Flags().StringVar(&eventEnd, "end", "", "Event end time")
	eventCreateCmd.Flags().StringVar(&eventAttendees, "attendees", "", "Comma-separated attendee emails")

	eventUpdateCmd.Flags().StringVar(&eventTitle, "title", "", "New title")
	eventUpdateCmd.Flags().StringVar(&eventStart, "start", "", "New start time")
	eventUpdateCmd.Flags().StringVar(&eventEnd, "end", "", "New end time")

	eventCmd.AddCommand(eventCreateCmd)
	eventCmd.AddCommand(eventUpdateCmd)
	eventCmd.AddCommand(eventDeleteCmd)
	rootCmd.AddCommand(eventCmd)
}

func askFirst(cmd *cobra.Command, question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	return confirm(os.Stdin, cmd.OutOrStdout(), question)
}

func runEventCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, loc, err := newDispatcher(cfg)
	if err != nil {
		return err
	}

	if eventTitle == "" || eventStart == "" || eventEnd == "" {
		return fmt.Errorf("--title, --start and --end are all required")
	}
	start, err := parseWhen(eventStart, loc)
	if err != nil {
		return err
	}
	end, err := parseWhen(eventEnd, loc)
	if err != nil {
		return err
	}

	var attendees []string
	for _, a := range strings.Split(eventAttendees, ",") {
		if email := strings.TrimSpace(a); email != "" {
			attendees = append(attendees, email)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "New event %q, %s to %s, %d attendee(s).\n",
		eventTitle, start.Format("Mon Jan 2 15:04"), end.Format("15:04"), len(attendees))
	if !askFirst(cmd, "Shall I schedule it?") {
		fmt.Fprintln(out, "Very well, nothing scheduled.")
		return nil
	}

	res := d.Dispatch(cmd.Context(), dispatch.Request{
		Kind:       dispatch.CreateEvent,
		CalendarID: eventCalendar,
		Title:      eventTitle,
		Start:      start,
		End:        end,
		Attendees:  attendees,
	})
	printResult(out, res)
	return nil
}

func runEventUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, loc, err := newDispatcher(cfg)
	if err != nil {
		return err
	}

	changes := map[string]string{}
	if eventTitle != "" {
		changes["title"] = eventTitle
	}
	if eventStart != "" {
		start, err := parseWhen(eventStart, loc)
		if err != nil {
			return err
		}
		changes["start"] = start.Format(time.RFC3339)
	}
	if eventEnd != "" {
		end, err := parseWhen(eventEnd, loc)
		if err != nil {
			return err
		}
		changes["end"] = end.Format(time.RFC3339)
	}
	if len(changes) == 0 {
		return fmt.Errorf("nothing to change; pass --title, --start or --end")
	}

	out := cmd.OutOrStdout()
	if !askFirst(cmd, fmt.Sprintf("Apply %d change(s) to event %s?", len(changes), args[0])) {
		fmt.Fprintln(out, "Very well, nothing changed.")
		return nil
	}

	res := d.Dispatch(cmd.Context(), dispatch.Request{
		Kind:       dispatch.UpdateEvent,
		CalendarID: eventCalendar,
		EventID:    args[0],
		Changes:    changes,
	})
	printResult(out, res)
	return nil
}

func runEventDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, _, err := newDispatcher(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !askFirst(cmd, fmt.Sprintf("Cancel event %s?", args[0])) {
		fmt.Fprintln(out, "Very well, the event stands.")
		return nil
	}

	res := d.Dispatch(cmd.Context(), dispatch.Request{
		Kind:       dispatch.DeleteEvent,
		CalendarID: eventCalendar,
		EventID:    args[0],
	})
	printResult(out, res)
	return nil
}
