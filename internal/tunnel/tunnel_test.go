package tunnel

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

func TestExtractPublicURL(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		line     string
		want     string
		found    bool
	}{
		{
			"cloudflared URL embedded in log line",
			Cloudflared,
			"2026-08-23T10:00:00Z INF +  https://witty-otter-1234.trycloudflare.com  +",
			"https://witty-otter-1234.trycloudflare.com",
			true,
		},
		{
			"ngrok free URL",
			Ngrok,
			`t=2026-08-23 lvl=info msg="started tunnel" url=https://ab12-34.ngrok-free.app`,
			"https://ab12-34.ngrok-free.app",
			true,
		},
		{
			"ngrok paid URL",
			Ngrok,
			"url=https://myapp.ngrok.app obj=tunnels",
			"https://myapp.ngrok.app",
			true,
		},
		{
			"lookalike domain yields no match",
			Cloudflared,
			"see https://docs.nottrycloudflare.com for details",
			"",
			false,
		},
		{
			"suffix extended by hostname characters yields no match",
			Cloudflared,
			"visit https://docs.trycloudflare.company.io for details",
			"",
			false,
		},
		{
			"suffix followed by another domain label yields no match",
			Cloudflared,
			"url=https://abc.trycloudflare.com.evil.io",
			"",
			false,
		},
		{
			"ngrok suffix extended past .app yields no match",
			Ngrok,
			"see https://x.ngrok.application.net",
			"",
			false,
		},
		{
			"real URL still matches when a lookalike precedes it",
			Cloudflared,
			"https://abc.trycloudflare.com.evil.io then https://real-host.trycloudflare.com ready",
			"https://real-host.trycloudflare.com",
			true,
		},
		{
			"URL followed by path still matches",
			Cloudflared,
			"INF https://witty-otter.trycloudflare.com/ registered",
			"https://witty-otter.trycloudflare.com",
			true,
		},
		{
			"suffix without dot separator yields no match",
			Ngrok,
			"https://fakengrok.app is not ours",
			"",
			false,
		},
		{
			"no URL at all",
			Cloudflared,
			"INF Starting tunnel connection registered",
			"",
			false,
		},
		{
			"empty line",
			Ngrok,
			"",
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := extractPublicURL(tt.provider.URLPattern, tt.line)
			if found != tt.found || got != tt.want {
				t.Errorf("extractPublicURL(%q) = (%q, %v), want (%q, %v)", tt.line, got, found, tt.want, tt.found)
			}
		})
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"ngrok", "ngrok", "ngrok", true},
		{"cloudflared", "cloudflared", "cloudflared", true},
		{"mixed case", "NGROK", "ngrok", true},
		{"padded", "  cloudflared ", "cloudflared", true},
		{"unknown", "localtunnel", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ByName(tt.input)
			if ok != tt.ok {
				t.Fatalf("ByName(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && p.Name != tt.want {
				t.Errorf("ByName(%q).Name = %q, want %q", tt.input, p.Name, tt.want)
			}
		})
	}
}

// stubProvider fakes a tunnel helper with a shell one-liner so the race and
// lifecycle paths can run against a real subprocess.
func stubProvider(script string) Provider {
	return Provider{
		Name:       "stub",
		Executable: "/bin/sh",
		Args: func(port int) []string {
			return []string{"-c", script}
		},
		URLPattern: Cloudflared.URLPattern,
	}
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub helper requires a POSIX shell")
	}
}

func TestStartFindsURLOnStdout(t *testing.T) {
	requireUnix(t)

	p := stubProvider("echo 'INF https://alpha-beta-1.trycloudflare.com registered'; exec sleep 10")
	handle, err := Start(context.Background(), p, 8976, 5*time.Second)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = handle.Stop() }()

	if handle.PublicURL != "https://alpha-beta-1.trycloudflare.com" {
		t.Errorf("PublicURL = %q", handle.PublicURL)
	}
	if err = handle.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	// Stop is idempotent.
	if err = handle.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStartFindsURLOnStderr(t *testing.T) {
	requireUnix(t)

	p := stubProvider("echo 'INF https://gamma-delta-2.trycloudflare.com' 1>&2; exec sleep 10")
	handle, err := Start(context.Background(), p, 8976, 5*time.Second)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = handle.Stop() }()

	if handle.PublicURL != "https://gamma-delta-2.trycloudflare.com" {
		t.Errorf("PublicURL = %q", handle.PublicURL)
	}
}

func TestStartTimeout(t *testing.T) {
	requireUnix(t)

	p := stubProvider("exec sleep 10")
	start := time.Now()
	handle, err := Start(context.Background(), p, 8976, 300*time.Millisecond)
	elapsed := time.Since(start)

	var timeoutErr *StartTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *StartTimeoutError", err)
	}
	if timeoutErr.Timeout != 300*time.Millisecond {
		t.Errorf("reported bound = %v", timeoutErr.Timeout)
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}

	// The process is intentionally left running on timeout; the handle is
	// still returned so the owning scope can release it.
	if handle == nil {
		t.Fatal("handle must be returned on timeout for cleanup")
	}
	if handle.PublicURL != "" {
		t.Errorf("PublicURL = %q, want empty on timeout", handle.PublicURL)
	}
	if err = handle.Stop(); err != nil {
		t.Errorf("Stop() after timeout error = %v", err)
	}
}

func TestStopWhileStreamActive(t *testing.T) {
	requireUnix(t)

	// The helper keeps writing after announcing its URL, so the losing
	// stderr reader is still on its pipe when Stop runs. Stop must let the
	// readers drain to EOF after the kill and still return promptly.
	p := stubProvider("echo 'INF https://epsilon-zeta-3.trycloudflare.com'; while true; do echo noise; sleep 0.01; done")
	handle, err := Start(context.Background(), p, 8976, 5*time.Second)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if handle.PublicURL != "https://epsilon-zeta-3.trycloudflare.com" {
		t.Errorf("PublicURL = %q", handle.PublicURL)
	}

	done := make(chan error, 1)
	go func() { done <- handle.Stop() }()

	select {
	case err = <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return while helper stream was active")
	}
}

func TestStartMissingExecutable(t *testing.T) {
	p := Provider{
		Name:       "ghost",
		Executable: "slackline-test-no-such-binary",
		Args:       func(port int) []string { return nil },
		URLPattern: Cloudflared.URLPattern,
	}

	if _, err := Start(context.Background(), p, 8976, time.Second); err == nil {
		t.Fatal("expected start failure for missing executable")
	}
}

func TestStopNilHandle(t *testing.T) {
	var handle *Handle
	if err := handle.Stop(); err != nil {
		t.Errorf("Stop() on nil handle = %v", err)
	}
}

func TestProviderArgs(t *testing.T) {
	cfArgs := Cloudflared.Args(9000)
	want := []string{"tunnel", "--url", "http://127.0.0.1:9000"}
	if len(cfArgs) != len(want) {
		t.Fatalf("cloudflared args = %v", cfArgs)
	}
	for i := range want {
		if cfArgs[i] != want[i] {
			t.Errorf("cloudflared args[%d] = %q, want %q", i, cfArgs[i], want[i])
		}
	}

	ngArgs := Ngrok.Args(9000)
	if len(ngArgs) != 4 || ngArgs[0] != "http" || ngArgs[1] != "9000" {
		t.Errorf("ngrok args = %v", ngArgs)
	}
}
