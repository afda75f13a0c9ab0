package tunnel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Built-in tunnel providers. The two integrations differ only in executable,
// argument shape, and hostname suffix, so they share one implementation.
var (
	// Cloudflared runs a quick tunnel via Cloudflare, announcing a
	// *.trycloudflare.com URL on stderr in recent releases.
	//
	// The patterns capture the URL in group 1 and the character following the
	// hostname suffix in group 2. RE2 has no lookahead, so extractPublicURL
	// checks group 2 to reject hostnames that merely start with the suffix
	// (e.g. trycloudflare.company.io).
	Cloudflared = Provider{
		Name:       "cloudflared",
		Executable: "cloudflared",
		Args: func(port int) []string {
			return []string{"tunnel", "--url", fmt.Sprintf("http://127.0.0.1:%d", port)}
		},
		URLPattern: regexp.MustCompile(`(https://[a-zA-Z0-9-]+\.trycloudflare\.com)([a-zA-Z0-9.-]?)`),
	}

	// Ngrok exposes the port via ngrok's agent with log output forced onto
	// stdout.
	Ngrok = Provider{
		Name:       "ngrok",
		Executable: "ngrok",
		Args: func(port int) []string {
			return []string{"http", strconv.Itoa(port), "--log", "stdout"}
		},
		URLPattern: regexp.MustCompile(`(https://[a-zA-Z0-9-]+\.ngrok(?:-free)?\.app)([a-zA-Z0-9.-]?)`),
	}
)

// ByName resolves a provider from its CLI flag value.
func ByName(name string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cloudflared":
		return Cloudflared, true
	case "ngrok":
		return Ngrok, true
	default:
		return Provider{}, false
	}
}
