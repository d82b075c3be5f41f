package brief

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/friday-assist/friday/internal/interval"
	"github.com/friday-assist/friday/internal/session"
)

func sampleDigest() Digest {
	start := time.Date(2026, time.June, 2, 11, 30, 0, 0, time.UTC)
	slot, _ := interval.New(start, start.Add(90*time.Minute))
	return Digest{
		Identity:   "dave@example.com",
		Persona:    "mission commander",
		Priorities: "the status report",
		Generated:  time.Date(2026, time.June, 2, 8, 0, 0, 0, time.UTC),
		Mail: []session.MailHeadline{
			{ID: "m1", ThreadID: "t1", From: "mission-control@example.com", Subject: "Status check"},
		},
		Slots: []interval.Interval{slot},
	}
}

func TestComposeListsMailAndSlots(t *testing.T) {
	out := Compose(sampleDigest())

	for _, want := range []string{
		"dave@example.com",
		"Unread mail (1):",
		"mission-control@example.com: Status check",
		"Free slots (1):",
		"Tue 11:30 to 13:00 (1h30m0s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("briefing missing %q:\n%s", want, out)
		}
	}
}

func TestComposeEmptyDigest(t *testing.T) {
	out := Compose(Digest{Identity: "dave@example.com", Generated: time.Now()})

	if !strings.Contains(out, "No unread mail.") {
		t.Errorf("expected empty-mail line:\n%s", out)
	}
	if !strings.Contains(out, "No free slots in the window.") {
		t.Errorf("expected empty-slots line:\n%s", out)
	}
}

func TestPlainSummarizerMatchesCompose(t *testing.T) {
	d := sampleDigest()
	out, err := Plain{}.Summarize(context.Background(), d)
	if err != nil {
		t.Fatalf("plain summarizer failed: %v", err)
	}
	if out != Compose(d) {
		t.Error("plain summarizer should be the Compose rendering")
	}
}

func TestPromptCarriesTheFacts(t *testing.T) {
	p := prompt(sampleDigest())

	if !strings.Contains(p, "do not invent") {
		t.Errorf("prompt missing the no-invention instruction:\n%s", p)
	}
	if !strings.Contains(p, "mission commander") || !strings.Contains(p, "the status report") {
		t.Errorf("prompt missing persona and priorities:\n%s", p)
	}
	if !strings.Contains(p, Compose(sampleDigest())) {
		t.Error("prompt must embed the plain rendering verbatim")
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "models/gemini-1.5-flash"); err == nil {
		t.Error("expected an error without an API key")
	}
}
