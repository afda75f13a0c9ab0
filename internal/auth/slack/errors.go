package slack

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingParams reports a redirect request that carried neither an
// authorization code with state nor a provider error parameter. A single
// malformed request is terminal for the login attempt.
var ErrMissingParams = errors.New("callback request missing code and state parameters")

// StateMismatchError reports a redirect whose state parameter does not match
// the one generated for this login attempt. This is the CSRF defense of the
// flow: it is surfaced as its own type so callers can flag it loudly, and it
// must never be retried automatically.
type StateMismatchError struct {
	// Expected is the state generated for this login attempt.
	Expected string
	// Actual is the state returned in the redirect.
	Actual string
}

// Error returns a string representation of the state mismatch.
func (e *StateMismatchError) Error() string {
	return fmt.Sprintf("SECURITY: OAuth state mismatch (possible CSRF attempt): expected %q, got %q", e.Expected, e.Actual)
}

// ProviderDeniedError reports an error code returned by Slack in the
// redirect, e.g. when the user declines the consent screen.
type ProviderDeniedError struct {
	// Code is Slack's error parameter, reported verbatim.
	Code string
}

// Error returns a string representation of the provider denial.
func (e *ProviderDeniedError) Error() string {
	return fmt.Sprintf("authorization denied by provider: %s", e.Code)
}

// CallbackTimeoutError reports that no redirect arrived within the configured
// wait window.
type CallbackTimeoutError struct {
	// Timeout is the wall-clock bound that elapsed.
	Timeout time.Duration
}

// Error returns a string representation of the callback timeout.
func (e *CallbackTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for OAuth callback after %s", e.Timeout)
}

// HTTPStatusError reports a non-2xx response from the token endpoint. The raw
// body is preserved for diagnostics.
type HTTPStatusError struct {
	// StatusCode is the HTTP status returned by the endpoint.
	StatusCode int
	// Body is the raw response body.
	Body string
}

// Error returns a string representation of the HTTP failure.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// ParseError reports a 2xx token response whose body could not be decoded.
// It indicates drift in the provider contract rather than a user error.
type ParseError struct {
	// Err is the underlying decode error.
	Err error
}

// Error returns a string representation of the parse failure.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse token endpoint response: %v", e.Err)
}

// Unwrap exposes the underlying decode error.
func (e *ParseError) Unwrap() error { return e.Err }

// SlackAPIError reports an ok=false response from the Slack API, carrying
// Slack's error code verbatim (e.g. "invalid_code").
type SlackAPIError struct {
	// Code is Slack's error field.
	Code string
}

// Error returns a string representation of the Slack API error.
func (e *SlackAPIError) Error() string {
	return fmt.Sprintf("slack api error: %s", e.Code)
}

// IsStateMismatch checks whether err is a CSRF state mismatch.
func IsStateMismatch(err error) bool {
	var target *StateMismatchError
	return errors.As(err, &target)
}

// IsCallbackTimeout checks whether err is a callback wait timeout.
func IsCallbackTimeout(err error) bool {
	var target *CallbackTimeoutError
	return errors.As(err, &target)
}

// UserFriendlyMessage maps flow errors onto short messages suitable for
// terminal output.
func UserFriendlyMessage(err error) string {
	var (
		mismatch *StateMismatchError
		denied   *ProviderDeniedError
		timeout  *CallbackTimeoutError
		status   *HTTPStatusError
		slackErr *SlackAPIError
	)
	switch {
	case errors.As(err, &mismatch):
		return "The login response did not match this login attempt. This can indicate a CSRF attack; no token was requested. Please start over."
	case errors.As(err, &denied):
		if denied.Code == "access_denied" {
			return "Authorization was cancelled or denied."
		}
		return fmt.Sprintf("Slack reported an authorization error: %s", denied.Code)
	case errors.As(err, &timeout):
		return fmt.Sprintf("Timed out after %s waiting for the browser redirect. Please try again.", timeout.Timeout)
	case errors.As(err, &status):
		return fmt.Sprintf("The token endpoint rejected the request (HTTP %d).", status.StatusCode)
	case errors.As(err, &slackErr):
		return fmt.Sprintf("Slack rejected the token exchange: %s", slackErr.Code)
	case errors.Is(err, ErrMissingParams):
		return "The browser redirect was missing required parameters. Please try again."
	default:
		return "Login failed. Please try again."
	}
}
