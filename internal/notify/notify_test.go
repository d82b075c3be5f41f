package notify

import (
	"context"
	"errors"
	"testing"
)

func TestBuildArgsDarwin(t *testing.T) {
	name, args, ok := buildArgs("darwin", Notification{
		Title:    "Friday",
		Message:  "2 unread messages",
		Subtitle: "Morning check",
	})
	if !ok {
		t.Fatal("darwin should be supported")
	}
	if name != "terminal-notifier" {
		t.Errorf("unexpected command %q", name)
	}
	want := []string{"-title", "Friday", "-message", "2 unread messages", "-subtitle", "Morning check"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildArgsLinux(t *testing.T) {
	name, args, ok := buildArgs("linux", Notification{Title: "Friday", Message: "free slot at 11:30"})
	if !ok {
		t.Fatal("linux should be supported")
	}
	if name != "notify-send" {
		t.Errorf("unexpected command %q", name)
	}
	if len(args) != 2 || args[0] != "Friday" || args[1] != "free slot at 11:30" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildArgsUnsupportedPlatform(t *testing.T) {
	if _, _, ok := buildArgs("plan9", Notification{Title: "t", Message: "m"}); ok {
		t.Error("expected no command on unsupported platforms")
	}
}

func TestPostRunsPlatformCommand(t *testing.T) {
	var gotName string
	var gotArgs []string
	n := &Notifier{
		goos: "linux",
		run: func(_ context.Context, name string, args ...string) error {
			gotName = name
			gotArgs = args
			return nil
		},
	}

	err := n.Post(context.Background(), Notification{Title: "Friday", Message: "ping"})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if gotName != "notify-send" || len(gotArgs) != 2 {
		t.Errorf("unexpected invocation: %s %v", gotName, gotArgs)
	}
}

func TestPostSurfacesCommandFailure(t *testing.T) {
	n := &Notifier{
		goos: "darwin",
		run: func(context.Context, string, ...string) error {
			return errors.New("no such binary")
		},
	}
	if err := n.Post(context.Background(), Notification{Title: "t", Message: "m"}); err == nil {
		t.Error("expected command failure to surface")
	}
}

func TestPostRejectsEmptyNotification(t *testing.T) {
	n := New()
	if err := n.Post(context.Background(), Notification{}); err == nil {
		t.Error("expected empty notification to be rejected")
	}
}

func TestPostDegradesToLogOnUnsupportedPlatform(t *testing.T) {
	called := false
	n := &Notifier{
		goos: "plan9",
		run: func(context.Context, string, ...string) error {
			called = true
			return nil
		},
	}
	if err := n.Post(context.Background(), Notification{Title: "t", Message: "m"}); err != nil {
		t.Fatalf("log fallback should not fail: %v", err)
	}
	if called {
		t.Error("no command should run on unsupported platforms")
	}
}
