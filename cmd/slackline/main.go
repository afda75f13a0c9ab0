// Package main provides the entry point for the slackline CLI.
// slackline performs an interactive Slack OAuth 2.0 login with PKCE and
// stores the obtained workspace credential for other tools to consume.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/slacktools/slackline/internal/auth/slack"
	"github.com/slacktools/slackline/internal/buildinfo"
	"github.com/slacktools/slackline/internal/config"
	"github.com/slacktools/slackline/internal/logging"
	"github.com/slacktools/slackline/internal/store"
	"github.com/slacktools/slackline/internal/tunnel"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// main parses command-line flags, loads configuration, and runs a single
// interactive login attempt. There is no retry loop here on purpose: every
// failure of the flow is terminal for the invocation, and the user restarts
// the whole attempt from scratch.
func main() {
	fmt.Printf("slackline Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var login bool
	var configPath string
	var tunnelName string
	var noBrowser bool
	var timeout time.Duration
	var credsFile string
	var debug bool

	flag.BoolVar(&login, "login", false, "Login to a Slack workspace using OAuth with PKCE")
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.StringVar(&tunnelName, "tunnel", "", "Expose the callback through a tunnel helper (ngrok or cloudflared)")
	flag.BoolVar(&noBrowser, "no-browser", false, "Do not open the browser automatically, just print the URL")
	flag.DurationVar(&timeout, "timeout", slack.DefaultCallbackTimeout, "How long to wait for the authorization redirect")
	flag.StringVar(&credsFile, "creds-file", "", "Where to write the obtained credential (default ~/.slackline/credentials.json)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	// Optional .env file next to the working directory; real env vars win.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment overrides from .env")
	}

	if !login {
		flag.Usage()
		os.Exit(2)
	}

	if err := runLogin(configPath, tunnelName, noBrowser, timeout, credsFile); err != nil {
		log.Error(err.Error())
		fmt.Fprintln(os.Stderr, slack.UserFriendlyMessage(err))
		os.Exit(1)
	}
}

// runLogin wires config, tunnel selection, and the OAuth flow together.
func runLogin(configPath, tunnelName string, noBrowser bool, timeout time.Duration, credsFile string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err = cfg.OAuth.Validate(); err != nil {
		return err
	}

	port, err := config.ResolveCallbackPort()
	if err != nil {
		return err
	}

	opts := slack.LoginOptions{
		Port:        port,
		Timeout:     timeout,
		OpenBrowser: !noBrowser,
	}

	if tunnelName != "" {
		provider, ok := tunnel.ByName(tunnelName)
		if !ok {
			return fmt.Errorf("unknown tunnel provider %q (supported: ngrok, cloudflared)", tunnelName)
		}
		opts.Tunnel = &provider
	}

	auth := slack.NewSlackAuth(&cfg.OAuth)
	result, err := auth.Login(context.Background(), opts)
	if err != nil {
		return err
	}

	resp := result.Response
	if resp.Team != nil {
		fmt.Printf("Authorized with workspace %s (%s)\n", resp.Team.Name, resp.Team.ID)
	}
	if resp.BotUserID != "" {
		fmt.Printf("Bot user: %s\n", resp.BotUserID)
	}
	fmt.Printf("Token: %s\n", maskToken(resp.AccessToken))

	path := credsFile
	if path == "" {
		if cfg.CredentialsFile != "" {
			path = cfg.CredentialsFile
		} else {
			path = store.DefaultPath()
		}
	}
	if err = store.Save(path, store.FromOAuthResponse(resp)); err != nil {
		return err
	}
	fmt.Printf("Credentials saved to %s\n", path)
	return nil
}

// maskToken keeps only enough of the token visible to identify it in output.
func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
