package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/slacktools/slackline/internal/browser"
	"github.com/slacktools/slackline/internal/config"
	"github.com/slacktools/slackline/internal/tunnel"
)

// DefaultCallbackTimeout bounds how long the flow waits for the browser
// redirect before giving up.
const DefaultCallbackTimeout = 5 * time.Minute

// DefaultTunnelTimeout bounds how long the flow waits for the tunnel helper
// to announce its public URL.
const DefaultTunnelTimeout = 30 * time.Second

// LoginOptions controls a single interactive login attempt.
type LoginOptions struct {
	// Port is the local callback port. Zero asks the OS for an ephemeral
	// port, which only makes sense together with a tunnel or in tests.
	Port int
	// Timeout bounds the wait for the browser redirect; zero means
	// DefaultCallbackTimeout.
	Timeout time.Duration
	// OpenBrowser opens the authorization URL automatically. The URL is
	// always printed regardless, since opening can fail on headless hosts.
	OpenBrowser bool
	// Tunnel, when set, exposes the callback port publicly through the given
	// helper before the authorization URL is built.
	Tunnel *tunnel.Provider
	// TunnelTimeout bounds the wait for the tunnel's public URL; zero means
	// DefaultTunnelTimeout.
	TunnelTimeout time.Duration
	// APIBaseURL overrides the Slack API base URL. Used by tests.
	APIBaseURL string
}

// LoginResult is the outcome of a completed login attempt.
type LoginResult struct {
	// Response is the typed token response from Slack.
	Response *OAuthResponse
	// RedirectURI is the redirect actually used, which differs from the
	// configured one when a tunnel supplied the public hostname.
	RedirectURI string
}

// SlackAuth drives one Slack OAuth 2.0 PKCE login attempt end to end:
// generate PKCE and state, optionally start a tunnel, build the authorization
// URL, wait for the redirect, and exchange the code for tokens. It performs
// no retries; every failure is returned as a typed error for the caller to
// interpret, and nothing is persisted here.
type SlackAuth struct {
	cfg        *config.OAuthConfig
	httpClient *http.Client
}

// NewSlackAuth creates a new Slack authentication service for the given
// application config.
func NewSlackAuth(cfg *config.OAuthConfig) *SlackAuth {
	return &SlackAuth{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Login runs the whole authorization-code-with-PKCE handshake and returns the
// obtained credential. The flow is designed for exactly one interactive login
// per invocation; values generated here are never reused.
func (a *SlackAuth) Login(ctx context.Context, opts LoginOptions) (*LoginResult, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()[:8]
	logger := log.WithField("attempt_id", attemptID)

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCallbackTimeout
	}
	if opts.TunnelTimeout <= 0 {
		opts.TunnelTimeout = DefaultTunnelTimeout
	}

	pkceCodes, err := GeneratePKCECodes()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	server := NewCallbackServer(opts.Port, state)
	if err = server.Start(); err != nil {
		return nil, err
	}
	defer server.Close()
	logger.WithField("port", server.Port()).Debug("callback listener started")

	// The effective config for this attempt: the redirect URI is rewritten
	// when a tunnel supplies the public hostname, and the same value must be
	// sent in both the authorization request and the token exchange.
	effective := *a.cfg

	if opts.Tunnel != nil {
		handle, errTunnel := tunnel.Start(ctx, *opts.Tunnel, server.Port(), opts.TunnelTimeout)
		if handle != nil {
			defer func() {
				if errStop := handle.Stop(); errStop != nil {
					logger.Errorf("tunnel teardown failed: %v", errStop)
				}
			}()
		}
		if errTunnel != nil {
			return nil, errTunnel
		}
		effective.RedirectURI = handle.PublicURL + callbackPath(a.cfg.RedirectURI)
		logger.WithField("url", effective.RedirectURI).Info("using tunneled redirect URI; make sure it is registered with your Slack app")
	}

	authURL, err := BuildAuthorizationURL(&effective, pkceCodes.CodeChallenge, state)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Open the following URL to authorize slackline with your workspace:\n\n  %s\n\n", authURL)
	if opts.OpenBrowser {
		if errOpen := browser.OpenURL(authURL); errOpen != nil {
			logger.Warnf("could not open browser automatically: %v", errOpen)
		}
	}

	logger.WithField("timeout", opts.Timeout).Info("waiting for authorization redirect")
	callback, err := server.WaitForCallback(opts.Timeout)
	if err != nil {
		if IsStateMismatch(err) {
			logger.Error("aborting login: redirect state did not match this attempt")
		}
		return nil, err
	}

	logger.Debug("authorization code received, exchanging for tokens")
	response, err := ExchangeCode(ctx, a.httpClient, &effective, callback.Code, pkceCodes.CodeVerifier, opts.APIBaseURL)
	if err != nil {
		return nil, err
	}

	logger.Info("login completed")
	return &LoginResult{Response: response, RedirectURI: effective.RedirectURI}, nil
}

// callbackPath extracts the path component of the configured redirect URI so
// the tunneled redirect lands on the same route. Falls back to the default
// callback path when the configured URI has none.
func callbackPath(redirectURI string) string {
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return config.DefaultCallbackPath
	}
	if !strings.HasPrefix(parsed.Path, "/") {
		return "/" + parsed.Path
	}
	return parsed.Path
}
