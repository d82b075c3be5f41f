package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Hours.Start != "09:00" || cfg.Hours.End != "18:00" {
		t.Errorf("unexpected default working hours: %s-%s", cfg.Hours.Start, cfg.Hours.End)
	}
	if len(cfg.Hours.Days) != 5 {
		t.Errorf("expected Mon-Fri default, got %v", cfg.Hours.Days)
	}
	if cfg.Slots.MinDurationMinutes != 30 {
		t.Errorf("expected 30 minute default slot duration, got %d", cfg.Slots.MinDurationMinutes)
	}
	if cfg.Proactive.CalendarID != "primary" {
		t.Errorf("expected primary calendar default, got %s", cfg.Proactive.CalendarID)
	}
	if cfg.Notify.Email != "important" || cfg.Notify.Calendar != "on" {
		t.Errorf("unexpected notification defaults: %+v", cfg.Notify)
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not be an error: %v", err)
	}
	if cfg.Hours.Start != "09:00" {
		t.Errorf("expected defaults, got %+v", cfg.Hours)
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.User.Email = "dave@example.com"
	cfg.User.Persona = "engineering manager"
	cfg.User.Timezone = "Asia/Kolkata"
	cfg.Hours.Start = "10:00"
	cfg.Slots.BufferMinutes = 10

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("saved config missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.User.Email != "dave@example.com" {
		t.Errorf("email did not survive roundtrip: %q", loaded.User.Email)
	}
	if loaded.Hours.Start != "10:00" {
		t.Errorf("working hours did not survive roundtrip: %q", loaded.Hours.Start)
	}
	if loaded.Slots.BufferMinutes != 10 {
		t.Errorf("buffer did not survive roundtrip: %d", loaded.Slots.BufferMinutes)
	}
	// Untouched fields should have been normalized in.
	if loaded.Proactive.Cron == "" {
		t.Error("expected proactive cron default after load")
	}
}

func TestWorkingHoursConversion(t *testing.T) {
	cfg := Default()
	cfg.Hours.Start = "09:30"
	cfg.Hours.End = "17:45"
	cfg.Hours.Days = []string{"Mon", "wednesday", "FRI"}

	wh, err := cfg.WorkingHours()
	if err != nil {
		t.Fatalf("WorkingHours failed: %v", err)
	}
	if wh.StartMinute != 9*60+30 || wh.EndMinute != 17*60+45 {
		t.Errorf("unexpected minutes: %d-%d", wh.StartMinute, wh.EndMinute)
	}
	if !wh.Days[time.Monday] || !wh.Days[time.Wednesday] || !wh.Days[time.Friday] {
		t.Errorf("expected Mon/Wed/Fri active, got %v", wh.Days)
	}
	if wh.Days[time.Tuesday] {
		t.Error("Tuesday should not be active")
	}
}

func TestWorkingHoursRejectsMidnightSpan(t *testing.T) {
	cfg := Default()
	cfg.Hours.Start = "22:00"
	cfg.Hours.End = "06:00"

	if _, err := cfg.WorkingHours(); err == nil {
		t.Error("expected midnight-spanning hours to be rejected")
	}
}

func TestWorkingHoursRejectsMalformedInput(t *testing.T) {
	cfg := Default()
	cfg.Hours.Start = "9 o'clock"
	if _, err := cfg.WorkingHours(); err == nil {
		t.Error("expected malformed start to be rejected")
	}

	cfg = Default()
	cfg.Hours.Days = []string{"blursday"}
	if _, err := cfg.WorkingHours(); err == nil {
		t.Error("expected unknown weekday to be rejected")
	}
}

func TestSlotDefaultsAsDurations(t *testing.T) {
	cfg := Default()
	cfg.Slots.MinDurationMinutes = 45
	cfg.Slots.BufferMinutes = 15

	if got := cfg.MinDuration(); got != 45*time.Minute {
		t.Errorf("expected 45m, got %s", got)
	}
	if got := cfg.Buffer(); got != 15*time.Minute {
		t.Errorf("expected 15m, got %s", got)
	}
}
