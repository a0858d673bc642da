// Package browser finds debug targets on a Chrome instance and can launch
// one. Targets are discovered over the DevTools HTTP endpoints
// (/json/list, /json/new, /json/version).
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ErrStartTimeout is returned when the debugging endpoint does not come up
// before the start context ends.
var ErrStartTimeout = errors.New("browser start timeout")

const (
	// DefaultStartTimeout bounds Start when ctx carries no deadline.
	DefaultStartTimeout = 30 * time.Second

	// closeGrace is how long Close waits after an interrupt before killing.
	closeGrace = 5 * time.Second

	readyPollInterval = 100 * time.Millisecond
)

// Browser is a Chrome process started with remote debugging.
type Browser struct {
	cmd         *exec.Cmd
	client      Client
	stderr      *os.File
	profile     string
	ownsProfile bool
	logger      *slog.Logger

	exited  chan struct{}
	waitErr error
}

// Start launches Chrome and returns once its discovery endpoint answers.
// When opts.Port is 0 the port Chrome picked is taken from its startup
// output, so Client always points at the running instance.
func Start(ctx context.Context, opts LaunchOptions) (*Browser, error) {
	bin, err := findChrome(opts.Binary)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &Browser{
		client:  Client{Host: DefaultHost, Port: opts.Port},
		profile: opts.UserDataDir,
		logger:  logger,
		exited:  make(chan struct{}),
	}
	if b.profile == "" {
		if b.profile, err = os.MkdirTemp("", "cdpsession-profile-*"); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
		b.ownsProfile = true
	}

	found, err := b.spawn(bin, buildArgs(opts, b.profile))
	if err != nil {
		b.removeProfile()
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultStartTimeout)
		defer cancel()
	}
	if err := b.waitReady(ctx, found, opts.Port == 0); err != nil {
		_ = b.Close()
		return nil, err
	}
	logger.Debug("browser ready", "pid", b.PID(), "host", b.client.Host, "port", b.client.Port)
	return b, nil
}

// spawn starts the process with stderr on a pipe scanned for the DevTools
// announcement.
func (b *Browser) spawn(bin string, args []string) (<-chan string, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	cmd := exec.Command(bin, args...)
	cmd.Stderr = w
	b.logger.Debug("launching browser", "binary", bin, "args", args)
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	_ = w.Close()

	b.cmd = cmd
	b.stderr = r
	found := make(chan string, 1)
	go scanDevTools(r, found)
	go func() {
		b.waitErr = cmd.Wait()
		close(b.exited)
	}()
	return found, nil
}

// waitReady blocks until /json/version answers. With needEndpoint set the
// client is first pointed at the endpoint Chrome announces.
func (b *Browser) waitReady(ctx context.Context, found <-chan string, needEndpoint bool) error {
	if needEndpoint {
		select {
		case endpoint := <-found:
			client, err := clientFor(endpoint)
			if err != nil {
				return err
			}
			b.client = client
		case <-b.exited:
			return fmt.Errorf("browser exited during startup: %v", b.waitErr)
		case <-ctx.Done():
			return ErrStartTimeout
		}
	}

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		if _, err := b.client.Version(ctx); err == nil {
			return nil
		}
		select {
		case <-b.exited:
			return fmt.Errorf("browser exited during startup: %v", b.waitErr)
		case <-ctx.Done():
			return ErrStartTimeout
		case <-ticker.C:
		}
	}
}

// PID returns the browser process ID.
func (b *Browser) PID() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// Client returns a discovery client bound to this browser.
func (b *Browser) Client() Client {
	return b.client
}

// Close interrupts the browser, kills it if it has not exited after a grace
// period, and removes a temporary profile. Safe to call repeatedly.
func (b *Browser) Close() error {
	if b.cmd == nil {
		return nil
	}

	if err := b.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		_ = b.cmd.Process.Kill()
	}
	select {
	case <-b.exited:
	case <-time.After(closeGrace):
		b.logger.Warn("browser ignored interrupt, killing", "pid", b.PID())
		_ = b.cmd.Process.Kill()
		<-b.exited
	}
	_ = b.stderr.Close()
	b.removeProfile()
	b.cmd = nil
	return nil
}

func (b *Browser) removeProfile() {
	if b.ownsProfile {
		_ = os.RemoveAll(b.profile)
	}
}
