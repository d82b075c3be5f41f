// Package notify posts desktop notifications during proactive cycles.
// On macOS it shells out to terminal-notifier, on Linux to notify-send;
// anywhere else notifications degrade to log lines.
package notify

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"runtime"
)

// Notification is one item to surface to the user.
type Notification struct {
	Title    string
	Message  string
	Subtitle string
}

// Notifier delivers notifications through the platform mechanism.
type Notifier struct {
	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

// New builds a notifier for the current platform.
func New() *Notifier {
	return &Notifier{
		goos: runtime.GOOS,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Post delivers one notification. Delivery failures are reported but
// callers generally just log them; a missed desktop popup never fails
// a cycle.
func (n *Notifier) Post(ctx context.Context, note Notification) error {
	if note.Title == "" || note.Message == "" {
		return fmt.Errorf("notification needs a title and a message")
	}

	name, args, ok := buildArgs(n.goos, note)
	if !ok {
		log.Printf("[notify] %s: %s", note.Title, note.Message)
		return nil
	}

	if err := n.run(ctx, name, args...); err != nil {
		return fmt.Errorf("posting notification via %s: %w", name, err)
	}
	return nil
}

// buildArgs maps a notification onto the platform command line. The
// third return is false when the platform has no supported command.
func buildArgs(goos string, note Notification) (string, []string, bool) {
	switch goos {
	case "darwin":
		args := []string{"-title", note.Title, "-message", note.Message}
		if note.Subtitle != "" {
			args = append(args, "-subtitle", note.Subtitle)
		}
		return "terminal-notifier", args, true
	case "linux":
		body := note.Message
		if note.Subtitle != "" {
			body = note.Subtitle + "\n" + body
		}
		return "notify-send", []string{note.Title, body}, true
	}
	return "", nil, false
}
