package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Resolution defaults.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 9222
	DefaultRetryTimeout  = 5 * time.Second
	DefaultInitialDelay  = 100 * time.Millisecond
	DefaultMaxRetryDelay = 2 * time.Second
)

// Resolver locates a page target on a running browser and returns its
// websocket URL. It satisfies cdp.Resolver.
//
// Resolution lists existing targets and picks the first page. When none
// exists, or StartNewTarget is set, a fresh page is opened instead. Transient
// failures (browser still starting, discovery endpoint refusing
// connections) are retried with exponential backoff until RetryTimeout
// elapses.
type Resolver struct {
	Client

	// StartNewTarget always opens a fresh page rather than reusing one.
	StartNewTarget bool

	// TargetID selects a specific target by id. It takes precedence over
	// StartNewTarget.
	TargetID string

	RetryTimeout time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration

	Logger *slog.Logger
}

// NewResolver returns a Resolver for host:port with default retry settings.
func NewResolver(host string, port int) *Resolver {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return &Resolver{
		Client:       Client{Host: host, Port: port},
		RetryTimeout: DefaultRetryTimeout,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// ResolveEndpoint implements cdp.Resolver.
func (r *Resolver) ResolveEndpoint(ctx context.Context) (string, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	timeout := r.RetryTimeout
	if timeout <= 0 {
		timeout = DefaultRetryTimeout
	}
	initial := r.InitialDelay
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	maxDelay := r.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := newBackoff(initial, maxDelay)
	for {
		endpoint, err := r.resolveOnce(ctx)
		if err == nil {
			return endpoint, nil
		}
		if errors.Is(err, ErrNoTarget) && r.TargetID != "" {
			return "", err
		}

		delay := b.NextDelay()
		logger.Debug("target resolution failed, retrying",
			"host", r.Host, "port", r.Port, "attempt", b.Attempts(), "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("resolve target on %s:%d after %d attempts: %w", r.Host, r.Port, b.Attempts(), err)
		case <-timer.C:
		}
	}
}

func (r *Resolver) resolveOnce(ctx context.Context) (string, error) {
	if r.TargetID == "" && r.StartNewTarget {
		t, err := r.NewTarget(ctx)
		if err != nil {
			return "", err
		}
		return r.SocketURL(*t), nil
	}

	targets, err := r.Targets(ctx)
	if err != nil {
		return "", err
	}

	if r.TargetID != "" {
		for _, t := range targets {
			if t.ID == r.TargetID {
				return r.SocketURL(t), nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrNoTarget, r.TargetID)
	}

	if t := FindPageTarget(targets); t != nil {
		return r.SocketURL(*t), nil
	}

	t, err := r.NewTarget(ctx)
	if err != nil {
		return "", err
	}
	return r.SocketURL(*t), nil
}
