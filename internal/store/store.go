// Package store persists the credential obtained by a login attempt. It is
// the consumer of the OAuth flow's output, deliberately kept outside the
// protocol packages: the flow hands over an ephemeral token and this package
// decides where it lives on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slacktools/slackline/internal/auth/slack"
)

// Credentials is the on-disk shape of a saved login.
type Credentials struct {
	// AccessToken is the bot token (xoxb-...).
	AccessToken string `json:"access_token"`
	// TokenType is usually "bot".
	TokenType string `json:"token_type,omitempty"`
	// Scope lists the granted bot scopes.
	Scope string `json:"scope,omitempty"`
	// BotUserID is the bot's member id in the workspace.
	BotUserID string `json:"bot_user_id,omitempty"`
	// AppID identifies the Slack app.
	AppID string `json:"app_id,omitempty"`
	// TeamID and TeamName identify the workspace.
	TeamID   string `json:"team_id,omitempty"`
	TeamName string `json:"team_name,omitempty"`
	// UserID is the authorizing user's member id.
	UserID string `json:"user_id,omitempty"`
	// UserToken is the user token (xoxp-...), present only when user scopes
	// were requested.
	UserToken string `json:"user_token,omitempty"`
	// ObtainedAt records when the login completed.
	ObtainedAt time.Time `json:"obtained_at"`
}

// DefaultPath returns the default credentials file location under the user's
// home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".slackline", "credentials.json")
	}
	return filepath.Join(home, ".slackline", "credentials.json")
}

// FromOAuthResponse flattens a token response into the on-disk shape.
func FromOAuthResponse(resp *slack.OAuthResponse) *Credentials {
	creds := &Credentials{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		Scope:       resp.Scope,
		BotUserID:   resp.BotUserID,
		AppID:       resp.AppID,
		ObtainedAt:  time.Now().UTC(),
	}
	if resp.Team != nil {
		creds.TeamID = resp.Team.ID
		creds.TeamName = resp.Team.Name
	}
	if resp.AuthedUser != nil {
		creds.UserID = resp.AuthedUser.ID
		creds.UserToken = resp.AuthedUser.AccessToken
	}
	return creds
}

// Save writes the credentials as JSON to path, creating parent directories as
// needed. The file is written with 0600 since it contains token material.
func Save(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
