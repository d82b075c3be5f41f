package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/friday-assist/friday/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare configuration and credential storage",
	Long: `Let's get acquainted. I'll ask a few questions, write the
configuration file, and create the credential directory.

This command is idempotent - safe to run multiple times. Existing
answers become the defaults on the next run.

Afterwards, place your Google OAuth client file at
<credentials_dir>/credentials.json and run 'friday auth url' for each
service you want me to handle.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := config.ExpandPath(configPath)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("reading existing configuration: %w", err)
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "A few questions and we're in business.")
	fmt.Fprintln(out)

	cfg.User.Email = promptString(in, out, "Your email address", cfg.User.Email)
	if cfg.User.Email == "" {
		return fmt.Errorf("I do need an email address to work with")
	}
	cfg.User.Timezone = promptString(in, out, "Timezone (IANA name)", cfg.User.Timezone)
	cfg.User.Persona = promptString(in, out, "A line about your role (used in briefings)", cfg.User.Persona)
	cfg.User.Priorities = promptString(in, out, "Your current priorities", cfg.User.Priorities)
	cfg.Hours.Start = promptString(in, out, "Working hours start (HH:MM)", cfg.Hours.Start)
	cfg.Hours.End = promptString(in, out, "Working hours end (HH:MM)", cfg.Hours.End)
	cfg.Notify.Email = promptString(in, out, "Mail notifications (important/off)", cfg.Notify.Email)
	cfg.Notify.Calendar = promptString(in, out, "Calendar notifications (on/off)", cfg.Notify.Calendar)

	cfg.Normalize()

	// Reject bad answers now rather than on first use.
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("that timezone doesn't check out: %w", err)
	}
	if _, err := cfg.WorkingHours(); err != nil {
		return fmt.Errorf("those working hours don't check out: %w", err)
	}

	credentialsDir := config.ExpandPath(cfg.Google.CredentialsDir)
	if err := os.MkdirAll(credentialsDir, 0o700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "All set. Configuration written to %s.\n", path)
	fmt.Fprintf(out, "Place your OAuth client file at %s,\n", filepath.Join(credentialsDir, "credentials.json"))
	fmt.Fprintln(out, "then run 'friday auth url calendar' and 'friday auth url gmail'.")
	return nil
}
