package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/slacktools/slackline/internal/config"
)

const (
	// DefaultAPIBaseURL is the base URL of the Slack Web API.
	DefaultAPIBaseURL = "https://slack.com"
	// tokenExchangePath is the OAuth v2 token exchange method.
	tokenExchangePath = "/api/oauth.v2.access"
)

// Team identifies the Slack workspace the token was issued for.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthedUser carries the user-scoped part of the OAuth response.
type AuthedUser struct {
	ID          string `json:"id"`
	Scope       string `json:"scope,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// OAuthResponse is the typed result of a Slack oauth.v2.access call. It is
// an ephemeral value handed to the caller; this package never persists it.
type OAuthResponse struct {
	OK          bool        `json:"ok"`
	AccessToken string      `json:"access_token,omitempty"`
	TokenType   string      `json:"token_type,omitempty"`
	Scope       string      `json:"scope,omitempty"`
	BotUserID   string      `json:"bot_user_id,omitempty"`
	AppID       string      `json:"app_id,omitempty"`
	Team        *Team       `json:"team,omitempty"`
	AuthedUser  *AuthedUser `json:"authed_user,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// ExchangeCode exchanges the authorization code for tokens at Slack's token
// endpoint. The request is form-encoded and carries the PKCE verifier so the
// provider can check it against the challenge bound to the code.
//
// Error mapping: a transport failure is returned wrapped; a non-2xx status
// becomes *HTTPStatusError carrying the raw body; a 2xx body that is not
// valid JSON becomes *ParseError; a parsed body with ok=false becomes
// *SlackAPIError. The token content itself is not validated here.
//
// Parameters:
//   - ctx: The context for the request
//   - client: The HTTP client to use; nil falls back to http.DefaultClient
//   - cfg: The validated OAuth application config
//   - code: The authorization code received in the redirect
//   - verifier: The PKCE code verifier generated for this attempt
//   - baseURL: Override for the API base URL; empty uses DefaultAPIBaseURL
//
// Returns:
//   - *OAuthResponse: The typed token response with ok=true
//   - error: One of the typed errors above
func ExchangeCode(ctx context.Context, client *http.Client, cfg *config.OAuthConfig, code, verifier, baseURL string) (*OAuthResponse, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}

	form := url.Values{
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {cfg.RedirectURI},
		"code_verifier": {verifier},
	}

	endpoint := strings.TrimSuffix(baseURL, "/") + tokenExchangePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if !gjson.ValidBytes(body) {
		return nil, &ParseError{Err: fmt.Errorf("response is not valid JSON: %q", truncateForLog(body))}
	}

	if ok := gjson.GetBytes(body, "ok"); !ok.Exists() || !ok.Bool() {
		errCode := gjson.GetBytes(body, "error").String()
		if errCode == "" {
			errCode = "unknown_error"
		}
		log.Debugf("token exchange rejected by slack: %s", errCode)
		return nil, &SlackAPIError{Code: errCode}
	}

	var oauthResp OAuthResponse
	if err = json.Unmarshal(body, &oauthResp); err != nil {
		return nil, &ParseError{Err: err}
	}

	return &oauthResp, nil
}

// truncateForLog keeps diagnostics readable when the endpoint returns an
// unexpected large or binary body.
func truncateForLog(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
