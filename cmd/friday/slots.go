package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/friday-assist/friday/internal/dispatch"
	"github.com/friday-assist/friday/internal/interval"
)

var (
	slotsDate     string
	slotsDays     int
	slotsMin      int
	slotsBuffer   int
	slotsCalendar string
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Find free time in your calendar",
	Long: `I'll look at your calendar, fold the busy time together, and
tell you where the genuinely free stretches are - inside working
hours, with a little breathing room around meetings.

Examples:
  friday slots
  friday slots --date 2026-06-02 --days 5
  friday slots --min 60 --buffer 15`,
	RunE: runSlots,
}

func init() {
	slotsCmd.Flags().StringVar(&slotsDate, "date", "", "Start date (YYYY-MM-DD), defaults to today")
	slotsCmd.Flags().IntVar(&slotsDays, "days", 1, "Number of days to search")
	slotsCmd.Flags().IntVar(&slotsMin, "min", 0, "Minimum slot length in minutes (default from config)")
	slotsCmd.Flags().IntVar(&slotsBuffer, "buffer", -1, "Buffer around meetings in minutes (default from config)")
	slotsCmd.Flags().StringVar(&slotsCalendar, "calendar", "primary", "Calendar to consult")
	rootCmd.AddCommand(slotsCmd)
}

func runSlots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, loc, err := newDispatcher(cfg)
	if err != nil {
		return err
	}

	from, err := parseDay(slotsDate, loc)
	if err != nil {
		return err
	}

	minDuration := cfg.MinDuration()
	if slotsMin > 0 {
		minDuration = time.Duration(slotsMin) * time.Minute
	}
	buffer := cfg.Buffer()
	if slotsBuffer >= 0 {
		buffer = time.Duration(slotsBuffer) * time.Minute
	}

	res := d.Dispatch(cmd.Context(), dispatch.Request{
		Kind:        dispatch.FindFreeSlots,
		CalendarID:  slotsCalendar,
		From:        from,
		To:          from.AddDate(0, 0, slotsDays),
		MinDuration: minDuration,
		Buffer:      buffer,
	})

	out := cmd.OutOrStdout()
	printResult(out, res)
	if res.OK {
		if slots, ok := res.Payload.([]interval.Interval); ok {
			printSlots(out, slots)
		}
	}
	return nil
}
