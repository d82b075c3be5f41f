package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friday-assist/friday/internal/config"
	"github.com/friday-assist/friday/internal/gservice"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to your Google services",
	Long: `Before I can read your calendar or mail I need your
authorization, once per service.

  friday auth url calendar        Print the URL to visit
  friday auth code calendar XYZ   Paste the code Google gives you

Tokens are stored per service under the credentials directory, so
authorizing the calendar never grants me your mail.`,
}

var authURLCmd = &cobra.Command{
	Use:   "url <calendar|gmail>",
	Short: "Print the authorization URL for a service",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthURL,
}

var authCodeCmd = &cobra.Command{
	Use:   "code <calendar|gmail> <code>",
	Short: "Exchange a pasted authorization code for a token",
	Args:  cobra.ExactArgs(2),
	RunE:  runAuthCode,
}

func init() {
	authCmd.AddCommand(authURLCmd)
	authCmd.AddCommand(authCodeCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthURL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := config.ExpandPath(cfg.Google.CredentialsDir)

	url, err := gservice.AuthURL(dir, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Visit this URL and approve access for %s:\n\n  %s\n\n", args[0], url)
	fmt.Fprintf(out, "Then run: friday auth code %s <code>\n", args[0])
	return nil
}

func runAuthCode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := config.ExpandPath(cfg.Google.CredentialsDir)

	if err := gservice.Authorize(cmd.Context(), dir, args[0], args[1]); err != nil {
		return fmt.Errorf("exchanging the code: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Thank you. %s access is authorized; ask me again whenever you're ready.\n", args[0])
	return nil
}
