// Package browser provides cross-platform functionality for opening the
// authorization URL in the user's default web browser. It abstracts the
// underlying operating system commands behind a simple interface.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// OpenURL opens the specified URL in the default web browser.
// It first attempts to use a platform-agnostic library and falls back to
// platform-specific commands if that fails. Callers should treat a failure
// as non-fatal: the login flow still works if the user opens the printed
// URL by hand.
func OpenURL(url string) error {
	if err := open.Run(url); err == nil {
		log.Debug("opened URL using open-golang library")
		return nil
	} else {
		log.Debugf("open-golang failed: %v, trying platform-specific commands", err)
	}

	return openURLPlatformSpecific(url)
}

// openURLPlatformSpecific opens a URL using OS-specific commands. It serves
// as a fallback mechanism for OpenURL.
func openURLPlatformSpecific(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		for _, candidate := range []string{"xdg-open", "x-www-browser", "sensible-browser"} {
			if _, err := exec.LookPath(candidate); err == nil {
				cmd = exec.Command(candidate, url)
				break
			}
		}
		if cmd == nil {
			return fmt.Errorf("no suitable browser opener found")
		}
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	return nil
}
