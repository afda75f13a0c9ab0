// Package tunnel manages the optional helper subprocess that exposes the
// local OAuth callback port under a public hostname. Helper CLIs such as
// cloudflared and ngrok offer no structured output, so the only reliable
// contract surface is pattern-matching their raw log lines; the public URL
// announcement can appear on either stdout or stderr depending on helper
// version and platform, which is why both streams are scanned concurrently.
package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Provider describes one tunnel helper integration: the executable to spawn,
// the arguments exposing a local port, and the pattern its public URL
// announcement matches.
type Provider struct {
	// Name identifies the provider in logs and errors.
	Name string
	// Executable is the helper binary name or path.
	Executable string
	// Args builds the helper's CLI arguments for the given local port.
	Args func(port int) []string
	// URLPattern matches the public URL inside a raw log line.
	URLPattern *regexp.Regexp
}

// Handle owns a live helper subprocess and the discovered public URL. It must
// be released with Stop on every exit path of the owning scope so the helper
// cannot outlive the CLI invocation.
type Handle struct {
	// PublicURL is the discovered public base URL. It is empty when Start
	// timed out before the helper announced one.
	PublicURL string

	provider string
	cmd      *exec.Cmd

	// readers tracks the two stream-scanning goroutines; Stop waits for
	// them before reaping the process, since Wait must not close the pipes
	// while a reader is still using them.
	readers sync.WaitGroup

	stopOnce sync.Once
	stopErr  error
}

// StartTimeoutError reports that the helper produced no public URL within the
// wait window. The process is left running; the caller decides whether to
// keep waiting via a retry or to Stop the returned handle.
type StartTimeoutError struct {
	// Provider is the helper that timed out.
	Provider string
	// Timeout is the wall-clock bound that elapsed.
	Timeout time.Duration
}

// Error returns a string representation of the start timeout.
func (e *StartTimeoutError) Error() string {
	return fmt.Sprintf("tunnel %s produced no public URL within %s", e.Provider, e.Timeout)
}

// Start spawns the helper process with piped stdout and stderr and blocks
// until a public URL is found on either stream or the timeout elapses. On
// timeout the process is not killed: the handle is still returned alongside
// the *StartTimeoutError so the caller can release it.
//
// Parameters:
//   - ctx: The context governing the subprocess lifetime
//   - p: The tunnel provider to launch
//   - port: The local callback port to expose
//   - timeout: How long to wait for the URL announcement
//
// Returns:
//   - *Handle: The live subprocess handle; non-nil even on timeout
//   - error: A *StartTimeoutError or a process start failure
func Start(ctx context.Context, p Provider, port int, timeout time.Duration) (*Handle, error) {
	cmd := exec.CommandContext(ctx, p.Executable, p.Args(port)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe %s stdout: %w", p.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe %s stderr: %w", p.Name, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start tunnel %s: %w", p.Name, err)
	}
	log.WithField("provider", p.Name).Debugf("tunnel helper started, pid %d", cmd.Process.Pid)

	handle := &Handle{provider: p.Name, cmd: cmd}

	// Single-slot race: whichever stream reader matches first commits the
	// URL; the other keeps scanning harmlessly until its pipe drains.
	urlChan := make(chan string, 1)
	handle.readers.Add(2)
	go func() {
		defer handle.readers.Done()
		scanForURL(stdout, "stdout", p, urlChan)
	}()
	go func() {
		defer handle.readers.Done()
		scanForURL(stderr, "stderr", p, urlChan)
	}()

	select {
	case publicURL := <-urlChan:
		handle.PublicURL = publicURL
		log.WithField("provider", p.Name).Infof("tunnel ready at %s", publicURL)
		return handle, nil
	case <-time.After(timeout):
		return handle, &StartTimeoutError{Provider: p.Name, Timeout: timeout}
	}
}

// scanForURL reads one subprocess stream line by line and commits the first
// public URL match to the shared slot. Losing the race is not an error; the
// send is simply dropped.
func scanForURL(r io.Reader, stream string, p Provider, urlChan chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		publicURL, ok := extractPublicURL(p.URLPattern, line)
		if !ok {
			continue
		}
		select {
		case urlChan <- publicURL:
			log.Debugf("tunnel URL found on %s: %s", stream, publicURL)
		default:
		}
		return
	}
	if err := scanner.Err(); err != nil {
		log.Debugf("tunnel %s %s reader stopped: %v", p.Name, stream, err)
	}
}

// extractPublicURL returns the public URL embedded in a raw log line, if any.
// A candidate whose hostname continues past the provider suffix (group 2
// non-empty) is a lookalike domain, not the helper's announcement, and is
// skipped.
func extractPublicURL(pattern *regexp.Regexp, line string) (string, bool) {
	for _, match := range pattern.FindAllStringSubmatch(line, -1) {
		if len(match) >= 3 && match[2] != "" {
			continue
		}
		return match[1], true
	}
	return "", false
}

// Stop kills the helper subprocess and waits for its exit status. The wait is
// always attempted, even when the kill fails, so the child is reaped on every
// path. Stop is idempotent.
func (h *Handle) Stop() error {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	h.stopOnce.Do(func() {
		killErr := h.cmd.Process.Kill()
		// Killing the helper closes the write ends of its pipes, so both
		// stream readers drain to EOF; only then is Wait allowed to reap the
		// process and release the read ends.
		h.readers.Wait()
		waitErr := h.cmd.Wait()

		if killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			h.stopErr = fmt.Errorf("failed to kill tunnel %s: %w", h.provider, killErr)
			return
		}
		// A killed helper reports an unclean exit; that is the expected
		// outcome of Stop, not a failure.
		log.WithField("provider", h.provider).Debugf("tunnel helper stopped (wait: %v)", waitErr)
	})

	return h.stopErr
}
