package main

import (
	"github.com/spf13/cobra"

	"github.com/friday-assist/friday/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "friday",
	Short: "At your service. I keep your mail and calendar in hand.",
	Long: `I'm Friday. I watch your inbox and your calendar so you don't
have to, and I never touch either without your say-so.

I can help you with:

  setup      Prepare configuration and credential storage
  auth       Authorize access to your Google services
  slots      Find free time in your calendar
  reply      Reply to a mail thread and mark it read
  event      Create, update or delete calendar events
  proactive  Run the periodic mail and calendar check

Say the word and I'll get started.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath,
		"Path to the configuration file")
}
