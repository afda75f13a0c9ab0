package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/slacktools/slackline/internal/auth/slack"
)

func TestFromOAuthResponse(t *testing.T) {
	resp := &slack.OAuthResponse{
		OK:          true,
		AccessToken: "xoxb-1",
		TokenType:   "bot",
		Scope:       "chat:write",
		BotUserID:   "U0BOT",
		AppID:       "A0APP",
		Team:        &slack.Team{ID: "T1", Name: "Acme"},
		AuthedUser:  &slack.AuthedUser{ID: "U1", AccessToken: "xoxp-2"},
	}

	creds := FromOAuthResponse(resp)
	if creds.AccessToken != "xoxb-1" || creds.TokenType != "bot" {
		t.Errorf("token fields = %q/%q", creds.AccessToken, creds.TokenType)
	}
	if creds.TeamID != "T1" || creds.TeamName != "Acme" {
		t.Errorf("team fields = %q/%q", creds.TeamID, creds.TeamName)
	}
	if creds.UserID != "U1" || creds.UserToken != "xoxp-2" {
		t.Errorf("user fields = %q/%q", creds.UserID, creds.UserToken)
	}
	if creds.ObtainedAt.IsZero() {
		t.Error("ObtainedAt not set")
	}
}

func TestFromOAuthResponseWithoutIdentity(t *testing.T) {
	creds := FromOAuthResponse(&slack.OAuthResponse{OK: true, AccessToken: "xoxb-2"})
	if creds.TeamID != "" || creds.UserID != "" {
		t.Errorf("expected empty identity fields, got %+v", creds)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "credentials.json")

	creds := FromOAuthResponse(&slack.OAuthResponse{
		OK:          true,
		AccessToken: "xoxb-3",
		Team:        &slack.Team{ID: "T9", Name: "Wonka"},
	})
	if err := Save(path, creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var loaded Credentials
	if err = json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if loaded.AccessToken != "xoxb-3" || loaded.TeamID != "T9" {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}
