package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeChrome writes a shell script that records its arguments, then runs body.
func fakeChrome(t *testing.T, body string) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	bin = filepath.Join(dir, "chrome")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$@\" > %q\n%s\n", argsFile, body)
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, argsFile
}

func versionServer(t *testing.T) (string, int) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"Browser":"FakeChrome/1.0"}`))
	}))
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	return u.Hostname(), port
}

func TestStart_AnnouncedPort(t *testing.T) {
	host, port := versionServer(t)
	bin, argsFile := fakeChrome(t, fmt.Sprintf(
		"echo 'DevTools listening on ws://%s:%d/devtools/browser/abc' >&2\nexec sleep 30", host, port))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b, err := Start(ctx, LaunchOptions{Binary: bin, Headless: true})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if got := b.Client(); got.Host != host || got.Port != port {
		t.Errorf("expected client %s:%d, got %+v", host, port, got)
	}
	if b.PID() == 0 {
		t.Error("expected a pid")
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := string(data)
	if !strings.Contains(args, "--remote-debugging-port=0\n") || !strings.Contains(args, "--headless=new\n") {
		t.Errorf("unexpected args:\n%s", args)
	}
	profile := b.profile
	if !strings.Contains(args, "--user-data-dir="+profile+"\n") {
		t.Errorf("expected temp profile %s in args:\n%s", profile, args)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := os.Stat(profile); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected temp profile removed, stat err=%v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestStart_KeepsUserProfile(t *testing.T) {
	host, port := versionServer(t)
	bin, _ := fakeChrome(t, "exec sleep 30")
	profile := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b, err := Start(ctx, LaunchOptions{Binary: bin, Port: port, UserDataDir: profile})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if got := b.Client(); got.Host != DefaultHost || got.Port != port {
		t.Errorf("expected fixed port client, got %+v (server on %s)", got, host)
	}
	_ = b.Close()

	if _, err := os.Stat(profile); err != nil {
		t.Errorf("user profile should be kept: %v", err)
	}
}

func TestStart_ExitDuringStartup(t *testing.T) {
	bin, _ := fakeChrome(t, "echo boom >&2\nexit 3")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := Start(ctx, LaunchOptions{Binary: bin})
	if err == nil || !strings.Contains(err.Error(), "exited during startup") {
		t.Fatalf("expected startup exit error, got %v", err)
	}
}

func TestStart_Timeout(t *testing.T) {
	bin, _ := fakeChrome(t, "exec sleep 30")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := Start(ctx, LaunchOptions{Binary: bin})
	if !errors.Is(err, ErrStartTimeout) {
		t.Fatalf("expected ErrStartTimeout, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("start took too long: %s", time.Since(start))
	}
}
