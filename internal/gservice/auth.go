// Package gservice connects friday to Google Calendar and Gmail. It is
// the only package that talks to the network; everything it returns is
// validated into typed values at this boundary.
package gservice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/friday-assist/friday/internal/fault"
)

// Service names this connector understands.
const (
	ServiceCalendar = "calendar"
	ServiceGmail    = "gmail"
)

// scopesFor returns the OAuth scopes a service needs.
func scopesFor(service string) ([]string, error) {
	switch service {
	case ServiceCalendar:
		return []string{calendar.CalendarScope}, nil
	case ServiceGmail:
		return []string{gmail.GmailModifyScope}, nil
	}
	return nil, fmt.Errorf("unknown service %q", service)
}

// credentialsPath returns the OAuth client credentials file location.
func credentialsPath(dir string) string {
	return filepath.Join(dir, "credentials.json")
}

// tokenPath returns the per-service token file location. Tokens are
// scoped per service so authorizing calendar access never implies mail
// access.
func tokenPath(dir, service string) string {
	return filepath.Join(dir, service+"-token.json")
}

// oauthConfig loads the OAuth client configuration for a service.
func oauthConfig(dir, service string) (*oauth2.Config, error) {
	scopes, err := scopesFor(service)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(credentialsPath(dir))
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	// Out-of-band flow: the user pastes the code back into the auth
	// command, no local callback server to keep alive.
	cfg.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return cfg, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// AuthURL returns the out-of-band authorization URL for a service.
func AuthURL(dir, service string) (string, error) {
	cfg, err := oauthConfig(dir, service)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// Authorize exchanges an authorization code for a token and persists
// it for the service. This is the out-of-band half of the
// PendingAuthorization flow; after it succeeds the failed action can
// be retried.
func Authorize(ctx context.Context, dir, service, code string) error {
	cfg, err := oauthConfig(dir, service)
	if err != nil {
		return err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to exchange code for token: %w", err)
	}

	return saveToken(tokenPath(dir, service), tok)
}

// pendingAuth builds the PendingAuthorization fault carrying the URL
// the user must visit.
func pendingAuth(cfg *oauth2.Config, service string) *fault.Error {
	return &fault.Error{
		Kind: fault.PendingAuthorization,
		Op:   service + ".connect",
		URL:  cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline),
		Err:  fmt.Errorf("no authorization on record for %s", service),
	}
}
