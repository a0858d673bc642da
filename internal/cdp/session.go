package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"
)

// DefaultTimeout is the default timeout for CDP commands.
const DefaultTimeout = 60 * time.Second

// DefaultWorkers is the default size of the listener/completion worker pool.
const DefaultWorkers = 10

// DefaultMaxMessageSize is the default inbound frame size limit. Screenshot
// and PDF results routinely exceed the websocket library's 32 KiB default.
const DefaultMaxMessageSize = 64 << 20

// State is the lifecycle state of a Session.
type State int

const (
	// StateDisconnected indicates no open channel.
	StateDisconnected State = iota
	// StateConnecting indicates endpoint resolution or handshake is in progress.
	StateConnecting
	// StateConnected indicates an open channel.
	StateConnected
	// StateClosing indicates Close is tearing the session down.
	StateClosing
	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable name for the session state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds session configuration.
type Config struct {
	// Timeout bounds every command wait unless the command overrides it.
	Timeout time.Duration
	// Workers is the number of goroutines delivering events and async results.
	Workers int
	// MaxMessageSize is the inbound frame size limit in bytes; -1 disables it.
	MaxMessageSize int64
	// Registry maps event method names to decoders. Events missing from it are dropped.
	Registry *Registry
	// Logger receives diagnostic output. Nil discards it.
	Logger *slog.Logger
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		Workers:        DefaultWorkers,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// Resolver produces the websocket endpoint of a debug target. Retry and
// backoff, if any, belong to the resolver.
type Resolver interface {
	ResolveEndpoint(ctx context.Context) (string, error)
}

// Endpoint is a Resolver for an already known websocket URL.
type Endpoint string

// ResolveEndpoint returns e.
func (e Endpoint) ResolveEndpoint(context.Context) (string, error) {
	if e == "" {
		return "", errors.New("empty endpoint")
	}
	return string(e), nil
}

// Session is one CDP connection: request ids, correlation table, listener
// registry and transport channel. All methods are safe for concurrent use.
type Session struct {
	id     string
	cfg    Config
	logger *slog.Logger

	msgID   atomic.Int64
	pending *pendingTable
	pool    *workerPool
	events  *dispatcher
	async   sync.WaitGroup

	mu       sync.Mutex
	state    State
	ch       *channel
	endpoint string
	lastErr  error
	closedCh chan struct{}
}

// NewSession creates a disconnected session. Zero-valued config fields take
// their defaults.
func NewSession(cfg Config) *Session {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	id := ulid.Make().String()
	logger := cfg.Logger.With("session", id)
	pool := newWorkerPool(cfg.Workers, logger)

	return &Session{
		id:       id,
		cfg:      cfg,
		logger:   logger,
		pending:  newPendingTable(),
		pool:     pool,
		events:   newDispatcher(id, cfg.Registry, pool, logger),
		closedCh: make(chan struct{}),
	}
}

// Dial creates a session and connects it to a known websocket endpoint.
func Dial(ctx context.Context, endpoint string, cfg Config) (*Session, error) {
	s := NewSession(cfg)
	if err := s.Connect(ctx, Endpoint(endpoint)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// ID returns the unique id of this session instance.
func (s *Session) ID() string { return s.id }

// String implements fmt.Stringer.
func (s *Session) String() string { return "cdp.Session(" + s.id + ")" }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the session has an open channel.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// Endpoint returns the websocket URL of the last successful connect.
func (s *Session) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// Err returns the error that caused the last disconnect, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Connect resolves the endpoint and opens the channel. On failure the
// session is left disconnected and a *ConnectionError is returned.
func (s *Session) Connect(ctx context.Context, r Resolver) error {
	if err := s.transition(StateDisconnected, StateConnecting); err != nil {
		return err
	}

	endpoint, err := r.ResolveEndpoint(ctx)
	if err != nil {
		s.setState(StateDisconnected)
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return err
		}
		return &ConnectionError{Err: fmt.Errorf("resolve endpoint: %w", err)}
	}

	s.logger.Debug("connecting", "endpoint", endpoint)
	conn, err := dial(ctx, endpoint, s.cfg.MaxMessageSize)
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}
	return s.open(conn, endpoint)
}

// Attach opens the session over an already established connection.
func (s *Session) Attach(conn Conn) error {
	if err := s.transition(StateDisconnected, StateConnecting); err != nil {
		return err
	}
	return s.open(conn, "")
}

func (s *Session) open(conn Conn, endpoint string) error {
	s.mu.Lock()
	if s.state != StateConnecting {
		// Close ran while we were dialing.
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		return ErrSessionClosed
	}
	old := s.ch
	s.ch = newChannel(conn, s.pending, s.events, s.logger, s.connectionLost)
	s.endpoint = endpoint
	s.lastErr = nil
	s.state = StateConnected
	s.mu.Unlock()

	if old != nil {
		_ = old.close()
	}
	s.logger.Debug("connected", "endpoint", endpoint)
	return nil
}

// connectionLost runs on the read loop when the socket fails underneath an
// open session.
func (s *Session) connectionLost(err error) {
	s.mu.Lock()
	if s.state == StateConnected {
		s.state = StateDisconnected
	}
	s.lastErr = err
	endpoint := s.endpoint
	s.mu.Unlock()

	n := s.pending.failAll(&ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("%w: %v", ErrConnectionLost, err)})
	if n > 0 {
		s.logger.Debug("failed pending commands after disconnect", "count", n)
	}
}

func (s *Session) transition(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing || s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.state != from {
		return fmt.Errorf("cdp: session is %s, want %s", s.state, from)
	}
	s.state = to
	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing || s.state == StateClosed {
		return
	}
	s.state = st
}

// NextID returns the next request id. Ids start at 1 and strictly increase
// for the lifetime of the session. Exhausting the int64 space panics rather
// than wrapping around into ids that may still be pending.
func (s *Session) NextID() int64 {
	id := s.msgID.Add(1)
	if id <= 0 {
		panic("cdp: request id space exhausted")
	}
	return id
}

// Pending returns the number of commands awaiting a response.
func (s *Session) Pending() int {
	return s.pending.len()
}

func (s *Session) channel() (*channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateConnected:
		return s.ch, nil
	case StateClosing, StateClosed:
		return nil, ErrSessionClosed
	default:
		if s.lastErr != nil {
			return nil, &ConnectionError{Endpoint: s.endpoint, Err: fmt.Errorf("%w: %v", ErrConnectionLost, s.lastErr)}
		}
		return nil, ErrNotConnected
	}
}

// call is a command in flight: its slot is registered and the request written.
type call struct {
	slot    *slot
	timeout time.Duration
}

// start allocates an id, registers the slot, and writes the request.
func (s *Session) start(ctx context.Context, method string, params *Params, sessionID string, timeout time.Duration) (call, error) {
	ch, err := s.channel()
	if err != nil {
		return call{}, err
	}
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}

	id := s.NextID()
	sl, err := s.pending.register(id, method)
	if err != nil {
		return call{}, err
	}

	req := Request{ID: id, Method: method, Params: params, SessionID: sessionID}
	if err := ch.write(ctx, req); err != nil {
		s.pending.remove(sl)
		sl.finish(slotCancelled, outcome{err: err})
		return call{}, err
	}
	return call{slot: sl, timeout: timeout}, nil
}

func (s *Session) wait(ctx context.Context, c call) (json.RawMessage, error) {
	return s.pending.await(ctx, c.slot, c.timeout)
}

// trackAsync accounts for an async completion goroutine. It fails once the
// session is closing so Close never races a new Add against its Wait.
func (s *Session) trackAsync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing || s.state == StateClosed {
		return false
	}
	s.async.Add(1)
	return true
}

// Call sends a raw command and waits for its result body, using the
// session's default timeout.
func (s *Session) Call(ctx context.Context, method string, params *Params) (json.RawMessage, error) {
	return s.exec(ctx, method, params, "", 0)
}

// CallSession sends a raw command to a flat-mode child session.
func (s *Session) CallSession(ctx context.Context, sessionID, method string, params *Params) (json.RawMessage, error) {
	return s.exec(ctx, method, params, sessionID, 0)
}

func (s *Session) exec(ctx context.Context, method string, params *Params, sessionID string, timeout time.Duration) (json.RawMessage, error) {
	c, err := s.start(ctx, method, params, sessionID, timeout)
	if err != nil {
		return nil, err
	}
	return s.wait(ctx, c)
}

// AddListener registers fn for events matching filter and returns its id.
func (s *Session) AddListener(filter Filter, fn Listener) string {
	return s.events.add("", filter, fn)
}

// SetListener registers fn under a caller-chosen id, replacing any listener
// already registered under it.
func (s *Session) SetListener(id string, filter Filter, fn Listener) {
	if id == "" || fn == nil {
		s.logger.Warn("listener or listener id was empty, not adding")
		return
	}
	s.events.add(id, filter, fn)
}

// RemoveListener unregisters a listener. It reports whether one was removed.
func (s *Session) RemoveListener(id string) bool {
	return s.events.remove(id)
}

// Listeners returns the number of registered listeners.
func (s *Session) Listeners() int {
	return s.events.count()
}

// Close clears all listeners, fails every pending command with
// ErrSessionClosed, and closes the channel. Safe to call repeatedly.
// Close must not be called synchronously from a listener.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		<-s.closedCh
		return nil
	}
	wasConnected := s.state == StateConnected
	s.state = StateClosing
	ch := s.ch
	s.mu.Unlock()

	s.events.clear()
	if n := s.pending.cancelAll(ErrSessionClosed); n > 0 {
		s.logger.Debug("cancelled pending commands", "count", n)
	}

	var err error
	if ch != nil {
		err = ch.close()
	}

	s.async.Wait()
	s.events.stop()
	s.pool.stop()

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	close(s.closedCh)

	if !wasConnected || isClosedConn(err) {
		return nil
	}
	return err
}
