// Package config provides configuration management for friday.
// Configuration is loaded from ~/.config/friday/config.yaml with
// sensible defaults; the setup command writes it on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/friday-assist/friday/internal/schedule"
)

// DefaultConfigPath is the default location for the config file.
const DefaultConfigPath = "~/.config/friday/config.yaml"

// UserConfig identifies the single user this run serves.
type UserConfig struct {
	// Email is the user identity used for all service connections.
	Email string `yaml:"email"`
	// Persona describes the user's role and work focus, fed to the
	// digest prompt.
	Persona string `yaml:"persona"`
	// Priorities are the user's key work priorities.
	Priorities string `yaml:"priorities"`
	// Timezone is the IANA canonical zone all busy time is normalized
	// into (e.g. "Asia/Kolkata").
	Timezone string `yaml:"timezone"`
}

// HoursConfig is the working-hours policy as written by the user.
type HoursConfig struct {
	Start string   `yaml:"start"` // "09:00"
	End   string   `yaml:"end"`   // "18:00"
	Days  []string `yaml:"days"`  // ["mon", ..., "fri"]
}

// SlotsConfig holds free-slot computation defaults.
type SlotsConfig struct {
	MinDurationMinutes int `yaml:"min_duration_minutes"`
	BufferMinutes      int `yaml:"buffer_minutes"`
}

// NotifyConfig holds notification preferences.
type NotifyConfig struct {
	// Email is "important" or "off".
	Email string `yaml:"email"`
	// Calendar is "on" or "off".
	Calendar string `yaml:"calendar"`
}

// ProactiveConfig drives the periodic check cycle.
type ProactiveConfig struct {
	// Cron is the cycle schedule (e.g. "*/30 * * * *").
	Cron string `yaml:"cron"`
	// CalendarID is the calendar consulted each cycle.
	CalendarID string `yaml:"calendar_id"`
	// MailLookbackHours bounds how far back unread mail is fetched.
	MailLookbackHours int `yaml:"mail_lookback_hours"`
}

// GoogleConfig locates OAuth material on disk.
type GoogleConfig struct {
	// CredentialsDir holds credentials.json and per-service token
	// files.
	CredentialsDir string `yaml:"credentials_dir"`
}

// GeminiConfig configures the optional LLM digest.
type GeminiConfig struct {
	// APIKeyEnv names the environment variable holding the API key.
	// An empty or unset variable disables the LLM digest.
	APIKeyEnv string `yaml:"api_key_env"`
}

// Config is the top-level friday configuration.
type Config struct {
	User      UserConfig      `yaml:"user"`
	Hours     HoursConfig     `yaml:"working_hours"`
	Slots     SlotsConfig     `yaml:"slots"`
	Notify    NotifyConfig    `yaml:"notifications"`
	Proactive ProactiveConfig `yaml:"proactive"`
	Google    GoogleConfig    `yaml:"google"`
	Gemini    GeminiConfig    `yaml:"gemini"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configErr    error
)

// Default returns the in-memory default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills missing or zero values with defaults so partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.User.Timezone == "" {
		c.User.Timezone = "UTC"
	}
	if c.Hours.Start == "" {
		c.Hours.Start = "09:00"
	}
	if c.Hours.End == "" {
		c.Hours.End = "18:00"
	}
	if len(c.Hours.Days) == 0 {
		c.Hours.Days = []string{"mon", "tue", "wed", "thu", "fri"}
	}
	if c.Slots.MinDurationMinutes <= 0 {
		c.Slots.MinDurationMinutes = 30
	}
	if c.Slots.BufferMinutes < 0 {
		c.Slots.BufferMinutes = 0
	}
	if c.Notify.Email == "" {
		c.Notify.Email = "important"
	}
	if c.Notify.Calendar == "" {
		c.Notify.Calendar = "on"
	}
	if c.Proactive.Cron == "" {
		c.Proactive.Cron = "*/30 * * * *"
	}
	if c.Proactive.CalendarID == "" {
		c.Proactive.CalendarID = "primary"
	}
	if c.Proactive.MailLookbackHours <= 0 {
		c.Proactive.MailLookbackHours = 24
	}
	if c.Google.CredentialsDir == "" {
		c.Google.CredentialsDir = "~/.config/friday/credentials"
	}
	if c.Gemini.APIKeyEnv == "" {
		c.Gemini.APIKeyEnv = "GOOGLE_API_KEY"
	}
}

// Load loads the configuration from the default path. It returns the
// cached config on subsequent calls.
func Load() (*Config, error) {
	configOnce.Do(func() {
		globalConfig, configErr = LoadFrom(DefaultConfigPath)
	})
	return globalConfig, configErr
}

// LoadFrom loads configuration from a specific file path. A missing
// file yields the defaults, not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the configuration to the given path, creating the parent
// directory if needed. The write is atomic and the file ends up 0600
// since it holds personal data.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	cfg.Normalize()

	target := ExpandPath(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".friday-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, target)
}

// Location resolves the user's canonical timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.User.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.User.Timezone, err)
	}
	return loc, nil
}

// WorkingHours converts the written policy into the schedule form,
// validating it on the way.
func (c *Config) WorkingHours() (schedule.WorkingHours, error) {
	start, err := parseClock(c.Hours.Start)
	if err != nil {
		return schedule.WorkingHours{}, fmt.Errorf("working_hours.start: %w", err)
	}
	end, err := parseClock(c.Hours.End)
	if err != nil {
		return schedule.WorkingHours{}, fmt.Errorf("working_hours.end: %w", err)
	}

	days := make(map[time.Weekday]bool, len(c.Hours.Days))
	for _, name := range c.Hours.Days {
		day, err := parseWeekday(name)
		if err != nil {
			return schedule.WorkingHours{}, fmt.Errorf("working_hours.days: %w", err)
		}
		days[day] = true
	}

	wh := schedule.WorkingHours{StartMinute: start, EndMinute: end, Days: days}
	if err := wh.Validate(); err != nil {
		return schedule.WorkingHours{}, err
	}
	return wh, nil
}

// MinDuration returns the default minimum slot duration.
func (c *Config) MinDuration() time.Duration {
	return time.Duration(c.Slots.MinDurationMinutes) * time.Minute
}

// Buffer returns the default busy-interval buffer.
func (c *Config) Buffer() time.Duration {
	return time.Duration(c.Slots.BufferMinutes) * time.Minute
}

// parseClock parses "HH:MM" into minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if len(key) > 3 {
		key = key[:3]
	}
	day, ok := weekdayNames[key]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return day, nil
}

// ExpandPath expands ~ to the home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResetForTesting resets the cached global config. Only use in tests.
func ResetForTesting() {
	configOnce = sync.Once{}
	globalConfig = nil
	configErr = nil
}
