package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/friday-assist/friday/internal/brief"
	"github.com/friday-assist/friday/internal/config"
	"github.com/friday-assist/friday/internal/dispatch"
	"github.com/friday-assist/friday/internal/fault"
	"github.com/friday-assist/friday/internal/gservice"
	"github.com/friday-assist/friday/internal/interval"
	"github.com/friday-assist/friday/internal/notify"
	"github.com/friday-assist/friday/internal/session"
)

var proactiveCmd = &cobra.Command{
	Use:   "proactive",
	Short: "Run the periodic mail and calendar check",
	Long: `The proactive cycle checks for unread mail and open calendar
slots, composes a short briefing, and posts a desktop notification
when there's something worth your attention.

  run     Run one cycle now
  start   Run on the configured cron schedule until interrupted

Checks only read; nothing is sent or changed without a confirmed
command.`,
}

var proactiveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one check cycle now",
	RunE:  runProactiveOnce,
}

var proactiveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run cycles on the configured cron schedule",
	Long: `Run check cycles on the cron schedule from the configuration
(default every 30 minutes) until interrupted.`,
	RunE: runProactiveStart,
}

func init() {
	proactiveCmd.AddCommand(proactiveRunCmd)
	proactiveCmd.AddCommand(proactiveStartCmd)
	rootCmd.AddCommand(proactiveCmd)
}

func runProactiveOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runCycle(cmd.Context(), cfg)
}

func runProactiveStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Proactive.Cron, func() {
		if err := runCycle(context.Background(), cfg); err != nil {
			log.Printf("[proactive] cycle failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cfg.Proactive.Cron, err)
	}

	c.Start()
	log.Printf("[proactive] running on schedule %q", cfg.Proactive.Cron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[proactive] shutting down")
	<-c.Stop().Done()
	return nil
}

// runCycle performs one read-only check: unread mail, free slots, a
// briefing, and notifications per the configured preferences.
func runCycle(ctx context.Context, cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	hours, err := cfg.WorkingHours()
	if err != nil {
		return err
	}

	orch := newOrchestrator(cfg)
	d := dispatch.New(orch, hours, loc)
	now := time.Now().In(loc)

	var mail []session.MailHeadline
	if cfg.Notify.Email != "off" {
		since := now.Add(-time.Duration(cfg.Proactive.MailLookbackHours) * time.Hour)
		err := orch.WithSession(ctx, gservice.ServiceGmail, func(ctx context.Context, s *session.Session) error {
			var merr error
			mail, merr = s.ListUnreadMail(ctx, since, 25)
			return merr
		})
		if err != nil {
			if url := fault.AuthorizationURL(err); url != "" {
				log.Printf("[proactive] gmail needs authorization; run 'friday auth url gmail'")
			} else {
				log.Printf("[proactive] mail check failed: %v", err)
			}
		}
	}

	var slots []interval.Interval
	if cfg.Notify.Calendar == "on" {
		res := d.Dispatch(ctx, dispatch.Request{
			Kind:        dispatch.FindFreeSlots,
			CalendarID:  cfg.Proactive.CalendarID,
			From:        now,
			To:          now.Add(24 * time.Hour),
			MinDuration: cfg.MinDuration(),
			Buffer:      cfg.Buffer(),
		})
		if res.OK {
			slots, _ = res.Payload.([]interval.Interval)
		} else if res.ErrKind == fault.PendingAuthorization {
			log.Printf("[proactive] calendar needs authorization; run 'friday auth url calendar'")
		} else {
			log.Printf("[proactive] slot check failed: %s", res.Summary)
		}
	}

	digest := brief.Digest{
		Identity:   cfg.User.Email,
		Persona:    cfg.User.Persona,
		Priorities: cfg.User.Priorities,
		Generated:  now,
		Mail:       mail,
		Slots:      slots,
	}

	text := summarize(ctx, cfg, digest)
	fmt.Println(text)

	notifier := notify.New()
	if cfg.Notify.Email == "important" && len(mail) > 0 {
		note := notify.Notification{
			Title:    "Friday",
			Subtitle: "Unread mail",
			Message:  fmt.Sprintf("%d unread message(s); latest from %s", len(mail), mail[0].From),
		}
		if err := notifier.Post(ctx, note); err != nil {
			log.Printf("[proactive] notification failed: %v", err)
		}
	}
	if cfg.Notify.Calendar == "on" && len(slots) > 0 {
		note := notify.Notification{
			Title:    "Friday",
			Subtitle: "Calendar",
			Message:  fmt.Sprintf("%d free slot(s) in the next day; first at %s", len(slots), slots[0].Start.Format("15:04")),
		}
		if err := notifier.Post(ctx, note); err != nil {
			log.Printf("[proactive] notification failed: %v", err)
		}
	}

	return nil
}

// summarize phrases the digest with the model when an API key is
// configured, otherwise (or on any model failure) the plain rendering.
func summarize(ctx context.Context, cfg *config.Config, digest brief.Digest) string {
	apiKey := os.Getenv(cfg.Gemini.APIKeyEnv)
	if apiKey == "" {
		return brief.Compose(digest)
	}

	g, err := brief.NewGemini(ctx, apiKey, "")
	if err != nil {
		log.Printf("[proactive] digest model unavailable: %v", err)
		return brief.Compose(digest)
	}
	defer g.Close()

	text, err := g.Summarize(ctx, digest)
	if err != nil {
		log.Printf("[proactive] digest failed, using plain briefing: %v", err)
		return brief.Compose(digest)
	}
	return text
}
