package browser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
)

// ErrChromeNotFound is returned when no Chrome binary can be located.
var ErrChromeNotFound = errors.New("chrome not found")

// ChromeEnv names the environment variable consulted for the Chrome binary
// when LaunchOptions.Binary is empty.
const ChromeEnv = "CDPSESSION_CHROME"

// LaunchOptions configures a local Chrome started for a session.
type LaunchOptions struct {
	// Binary is the Chrome executable. Empty means look it up.
	Binary string

	Headless bool

	// Port is the remote debugging port. 0 lets Chrome choose one; the
	// chosen port is read back from the process output.
	Port int

	// UserDataDir is the profile directory. Empty means a temporary profile
	// that is removed when the browser is closed.
	UserDataDir string

	// Args are extra command line flags, added after the built-in ones.
	Args []string

	Logger *slog.Logger
}

// chromeNames are looked up on PATH before the platform install locations.
var chromeNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
}

func chromeInstallPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
		}
	case "linux":
		return []string{"/snap/bin/chromium", "/opt/google/chrome/chrome"}
	}
	return nil
}

// findChrome resolves the executable to launch: the explicit binary, then
// ChromeEnv, then PATH, then known install locations. An explicit choice that
// does not exist is an error rather than a fallthrough.
func findChrome(binary string) (string, error) {
	if binary == "" {
		binary = os.Getenv(ChromeEnv)
	}
	if binary != "" {
		path, err := exec.LookPath(binary)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrChromeNotFound, binary)
		}
		return path, nil
	}

	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	for _, path := range chromeInstallPaths() {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrChromeNotFound
}

// buildArgs returns the Chrome command line for opts. The profile directory
// must already be resolved.
func buildArgs(opts LaunchOptions, profile string) []string {
	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(opts.Port),
		"--user-data-dir=" + profile,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
		"--disable-sync",
		"--disable-popup-blocking",
	}
	switch runtime.GOOS {
	case "darwin":
		args = append(args, "--use-mock-keychain")
	case "linux":
		args = append(args, "--password-store=basic")
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	args = append(args, opts.Args...)
	return append(args, "about:blank")
}

// devtoolsLine matches the line Chrome prints to stderr once the debugging
// endpoint is listening.
var devtoolsLine = regexp.MustCompile(`^DevTools listening on (ws://\S+)`)

// scanDevTools reads Chrome's stderr and sends the first announced browser
// endpoint on found. The rest of the stream is drained so Chrome never blocks
// on a full pipe.
func scanDevTools(r io.Reader, found chan<- string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if m := devtoolsLine.FindStringSubmatch(sc.Text()); m != nil {
			found <- m[1]
			break
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

// clientFor returns a discovery client for the host and port of an
// announced browser endpoint.
func clientFor(endpoint string) (Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return Client{}, fmt.Errorf("parse devtools endpoint: %w", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return Client{}, fmt.Errorf("devtools endpoint %q has no port", endpoint)
	}
	return Client{Host: u.Hostname(), Port: port}, nil
}
