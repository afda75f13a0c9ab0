// Package config handles the slackline configuration file and the environment
// overrides used by the OAuth login flow. Configuration is validated once,
// before any network call is attempted, and fails closed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// CallbackPortEnv names the environment variable that overrides the local
	// OAuth callback port.
	CallbackPortEnv = "SLACKLINE_CALLBACK_PORT"

	// DefaultCallbackPort is the local port used for the OAuth redirect when
	// no override is present.
	DefaultCallbackPort = 8976

	// DefaultCallbackPath is the path component of the redirect URI served by
	// the local callback listener.
	DefaultCallbackPath = "/oauth/callback"
)

// OAuthConfig holds the Slack app credentials and redirect parameters for one
// login attempt.
type OAuthConfig struct {
	// ClientID is the Slack app's client identifier.
	ClientID string `yaml:"client-id" json:"client-id"`
	// ClientSecret is the Slack app's client secret.
	ClientSecret string `yaml:"client-secret" json:"client-secret"`
	// RedirectURI is the redirect target registered with the Slack app. It is
	// replaced by the tunnel's public URL when a tunnel provider is used.
	RedirectURI string `yaml:"redirect-uri" json:"redirect-uri"`
	// Scopes lists the bot scopes requested during authorization.
	Scopes []string `yaml:"scopes" json:"scopes"`
}

// Validate checks that every field required for the OAuth flow is present.
// It is called once before any network I/O; an invalid config aborts the
// whole login attempt.
func (c *OAuthConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("oauth config is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("oauth config: client-id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("oauth config: client-secret is required")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return fmt.Errorf("oauth config: redirect-uri is required")
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("oauth config: at least one scope is required")
	}
	for _, scope := range c.Scopes {
		if strings.TrimSpace(scope) == "" {
			return fmt.Errorf("oauth config: scopes must not contain empty entries")
		}
	}
	return nil
}

// Config is the top-level slackline configuration.
type Config struct {
	// OAuth holds the Slack OAuth application settings.
	OAuth OAuthConfig `yaml:"oauth" json:"oauth"`
	// CredentialsFile is where the obtained token is persisted after login.
	CredentialsFile string `yaml:"credentials-file,omitempty" json:"credentials-file,omitempty"`
}

// LoadConfig reads the YAML configuration from the given path and applies
// environment overrides (SLACK_CLIENT_ID, SLACK_CLIENT_SECRET) on top of it.
//
// Parameters:
//   - configFile: Path to the YAML configuration file
//
// Returns:
//   - *Config: The parsed configuration
//   - error: An error if the file cannot be read or parsed
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides copies credential overrides from the environment into the
// config. Environment values win over file values so that secrets can stay
// out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SLACK_CLIENT_ID"); v != "" {
		cfg.OAuth.ClientID = v
	}
	if v := os.Getenv("SLACK_CLIENT_SECRET"); v != "" {
		cfg.OAuth.ClientSecret = v
	}
}

// ResolveCallbackPort returns the local callback port, honoring the
// SLACKLINE_CALLBACK_PORT override when present. A set-but-invalid override
// (empty, non-numeric, zero, or out of range) is a configuration error and is
// never silently ignored.
func ResolveCallbackPort() (int, error) {
	raw, ok := os.LookupEnv(CallbackPortEnv)
	if !ok {
		return DefaultCallbackPort, nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is set but empty", CallbackPortEnv)
	}

	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", CallbackPortEnv, raw)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%s must be in range 1-65535, got %d", CallbackPortEnv, port)
	}
	return port, nil
}
