// Package brief turns the morning's raw material — unread mail and
// open calendar slots — into a short status report. With a Gemini API
// key configured the report is phrased by the model; without one the
// deterministic plain rendering is used instead.
package brief

import (
	"context"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/friday-assist/friday/internal/interval"
	"github.com/friday-assist/friday/internal/session"
)

// Digest is everything a briefing is built from. Persona and
// Priorities come from the configuration and steer the model's
// phrasing; they never add facts.
type Digest struct {
	Identity   string
	Persona    string
	Priorities string
	Generated  time.Time
	Mail       []session.MailHeadline
	Slots      []interval.Interval
}

// Summarizer phrases a digest for the user.
type Summarizer interface {
	Summarize(ctx context.Context, d Digest) (string, error)
}

// Plain renders digests without calling any model. It is the fallback
// when no API key is configured and the safety net when the model is
// unreachable.
type Plain struct{}

func (Plain) Summarize(_ context.Context, d Digest) (string, error) {
	return Compose(d), nil
}

// Compose is the deterministic plain rendering of a digest. The model
// prompt is built on top of the same text so both paths agree on the
// facts.
func Compose(d Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Briefing for %s (%s)\n", d.Identity, d.Generated.Format("Mon Jan 2 15:04"))

	if len(d.Mail) == 0 {
		b.WriteString("\nNo unread mail.\n")
	} else {
		fmt.Fprintf(&b, "\nUnread mail (%d):\n", len(d.Mail))
		for _, m := range d.Mail {
			fmt.Fprintf(&b, "  - %s: %s\n", m.From, m.Subject)
		}
	}

	if len(d.Slots) == 0 {
		b.WriteString("\nNo free slots in the window.\n")
	} else {
		fmt.Fprintf(&b, "\nFree slots (%d):\n", len(d.Slots))
		for _, s := range d.Slots {
			fmt.Fprintf(&b, "  - %s to %s (%s)\n",
				s.Start.Format("Mon 15:04"), s.End.Format("15:04"), s.Duration())
		}
	}

	return b.String()
}

// prompt frames the digest for the model. The facts stay in the
// Compose rendering; the model is only asked to rephrase, never to
// invent mail or slots.
func prompt(d Digest) string {
	var b strings.Builder
	b.WriteString("You are Friday, a capable and understated personal assistant.\n")
	if d.Persona != "" {
		fmt.Fprintf(&b, "The user: %s\n", d.Persona)
	}
	if d.Priorities != "" {
		fmt.Fprintf(&b, "Their current priorities: %s\n", d.Priorities)
	}
	b.WriteString("Rewrite the following briefing as two or three short sentences,\n")
	b.WriteString("leading with whatever touches their priorities.\n")
	b.WriteString("Mention only mail and slots listed below; do not invent any.\n")
	b.WriteString("If there is nothing to report, say so in one sentence.\n\n")
	b.WriteString(Compose(d))
	return b.String()
}

// Gemini phrases digests with a generative model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini builds a model-backed summarizer. Close it when done.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured")
	}
	if modelName == "" {
		modelName = "models/gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: client.GenerativeModel(modelName)}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Summarize asks the model to phrase the digest. An empty response is
// an error so callers fall back to the plain rendering rather than
// emitting a blank briefing.
func (g *Gemini) Summarize(ctx context.Context, d Digest) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt(d)))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return out, nil
}
