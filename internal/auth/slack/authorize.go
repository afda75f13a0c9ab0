package slack

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/slacktools/slackline/internal/config"
)

// AuthorizeURL is Slack's OAuth 2.0 authorization endpoint.
const AuthorizeURL = "https://slack.com/oauth/v2/authorize"

// BuildAuthorizationURL composes the authorize endpoint URL for one login
// attempt. Scopes are joined with commas (Slack's convention) and every query
// value is percent-encoded. An error here means the base URL constant itself
// is broken, which is a programming error rather than a runtime condition.
//
// Parameters:
//   - cfg: The validated OAuth application config
//   - challenge: The PKCE S256 code challenge
//   - state: The CSRF state token for this attempt
//
// Returns:
//   - string: The complete authorization URL
//   - error: An error if the base authorize URL cannot be parsed
func BuildAuthorizationURL(cfg *config.OAuthConfig, challenge, state string) (string, error) {
	base, err := url.Parse(AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorize URL %q: %w", AuthorizeURL, err)
	}

	params := url.Values{
		"client_id":             {cfg.ClientID},
		"scope":                 {strings.Join(cfg.Scopes, ",")},
		"redirect_uri":          {cfg.RedirectURI},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"state":                 {state},
	}

	base.RawQuery = params.Encode()
	return base.String(), nil
}
