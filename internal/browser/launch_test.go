package browser

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{Port: 9333, Headless: true, Args: []string{"--mute-audio"}}, "/tmp/profile")

	for _, want := range []string{
		"--remote-debugging-port=9333",
		"--user-data-dir=/tmp/profile",
		"--no-first-run",
		"--headless=new",
		"--mute-audio",
	} {
		if !slices.Contains(args, want) {
			t.Errorf("missing %s in %v", want, args)
		}
	}
	if args[len(args)-1] != "about:blank" {
		t.Errorf("expected about:blank last, got %v", args)
	}
	if i, j := slices.Index(args, "--headless=new"), slices.Index(args, "--mute-audio"); i > j {
		t.Errorf("extra args should follow built-in flags: %v", args)
	}
}

func TestBuildArgs_AutoPortNotHeadless(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{}, "/p")
	if !slices.Contains(args, "--remote-debugging-port=0") {
		t.Errorf("expected port 0 to be passed through, got %v", args)
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--headless") {
			t.Errorf("unexpected %s", arg)
		}
	}

	switch runtime.GOOS {
	case "darwin":
		if !slices.Contains(args, "--use-mock-keychain") {
			t.Error("expected --use-mock-keychain on darwin")
		}
	case "linux":
		if !slices.Contains(args, "--password-store=basic") {
			t.Error("expected --password-store=basic on linux")
		}
	}
}

func TestFindChrome_Explicit(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "my-chrome")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ChromeEnv, "/nonexistent/chrome")

	path, err := findChrome(fake)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != fake {
		t.Errorf("expected %s, got %s", fake, path)
	}
}

func TestFindChrome_Env(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "env-chrome")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ChromeEnv, fake)

	path, err := findChrome("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != fake {
		t.Errorf("expected %s, got %s", fake, path)
	}
}

func TestFindChrome_MissingExplicitDoesNotFallThrough(t *testing.T) {
	t.Setenv(ChromeEnv, "/nonexistent/path/to/chrome")

	_, err := findChrome("")
	if !errors.Is(err, ErrChromeNotFound) {
		t.Fatalf("expected ErrChromeNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "/nonexistent/path/to/chrome") {
		t.Errorf("error should name the missing binary: %v", err)
	}
}

func TestScanDevTools(t *testing.T) {
	t.Parallel()

	stderr := strings.NewReader(strings.Join([]string{
		"[0101/000000.000:WARNING:gpu.cc(1)] noise",
		"",
		"DevTools listening on ws://127.0.0.1:41234/devtools/browser/5f0c",
		"later output",
	}, "\n"))

	found := make(chan string, 1)
	scanDevTools(stderr, found)

	select {
	case got := <-found:
		if got != "ws://127.0.0.1:41234/devtools/browser/5f0c" {
			t.Errorf("unexpected endpoint %q", got)
		}
	default:
		t.Fatal("expected an endpoint")
	}
}

func TestScanDevTools_NoAnnouncement(t *testing.T) {
	t.Parallel()

	found := make(chan string, 1)
	scanDevTools(strings.NewReader("starting\nnothing here\n"), found)
	if len(found) != 0 {
		t.Errorf("expected no endpoint, got %q", <-found)
	}
}

func TestClientFor(t *testing.T) {
	t.Parallel()

	c, err := clientFor("ws://127.0.0.1:41234/devtools/browser/5f0c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Host != "127.0.0.1" || c.Port != 41234 {
		t.Errorf("unexpected client %+v", c)
	}

	if _, err := clientFor("ws://127.0.0.1/devtools/browser/x"); err == nil {
		t.Error("expected error for endpoint without port")
	}
}
