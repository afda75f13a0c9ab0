package slack

import (
	"net/url"
	"strings"
	"testing"

	"github.com/slacktools/slackline/internal/config"
)

func TestBuildAuthorizationURL(t *testing.T) {
	cfg := &config.OAuthConfig{
		ClientID:     "123.456",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:8976/oauth/callback",
		Scopes:       []string{"chat:write", "channels:read"},
	}

	authURL, err := BuildAuthorizationURL(cfg, "the-challenge", "the-state")
	if err != nil {
		t.Fatalf("BuildAuthorizationURL() error = %v", err)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("output is not a valid URL: %v", err)
	}
	if got := parsed.Scheme + "://" + parsed.Host + parsed.Path; got != AuthorizeURL {
		t.Errorf("base URL = %q, want %q", got, AuthorizeURL)
	}

	query := parsed.Query()
	wantParams := map[string]string{
		"client_id":             "123.456",
		"scope":                 "chat:write,channels:read",
		"redirect_uri":          "http://127.0.0.1:8976/oauth/callback",
		"code_challenge":        "the-challenge",
		"code_challenge_method": "S256",
		"state":                 "the-state",
	}
	for key, want := range wantParams {
		values := query[key]
		if len(values) != 1 {
			t.Errorf("param %q appears %d times, want exactly once", key, len(values))
			continue
		}
		if values[0] != want {
			t.Errorf("param %q = %q, want %q", key, values[0], want)
		}
	}

	// The comma-joined scope list must be percent-encoded in the raw query.
	if strings.Contains(parsed.RawQuery, "chat:write,") {
		t.Errorf("scope separator not percent-encoded: %q", parsed.RawQuery)
	}
	if !strings.Contains(parsed.RawQuery, "chat%3Awrite%2Cchannels%3Aread") {
		t.Errorf("raw query missing encoded scope: %q", parsed.RawQuery)
	}
}
