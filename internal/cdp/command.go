package cdp

import (
	"context"
	"time"
)

// Command is a typed command request: a method, its parameters, and the
// result type T it decodes into. Generated domain packages build these.
type Command[T any] struct {
	Method    string
	Params    *Params
	SessionID string
	Timeout   time.Duration
}

// NewCommand returns a command for method with no parameters.
func NewCommand[T any](method string) Command[T] {
	return Command[T]{Method: method}
}

// With sets a parameter. Nil values are omitted from the wire.
func (c Command[T]) With(key string, value any) Command[T] {
	if c.Params == nil {
		c.Params = NewParams()
	}
	c.Params.Set(key, value)
	return c
}

// InSession targets a flat-mode child session.
func (c Command[T]) InSession(sessionID string) Command[T] {
	c.SessionID = sessionID
	return c
}

// WithTimeout overrides the session's default command timeout.
func (c Command[T]) WithTimeout(d time.Duration) Command[T] {
	c.Timeout = d
	return c
}

// Empty is the result type of commands that return nothing useful.
type Empty struct{}

// Send issues cmd on s, blocks for the outcome, and decodes the result into T.
// A remote failure is a *ProtocolError; an expired wait is a *TimeoutError.
func Send[T any](ctx context.Context, s *Session, cmd Command[T]) (T, error) {
	raw, err := s.exec(ctx, cmd.Method, cmd.Params, cmd.SessionID, cmd.Timeout)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeResult[T](cmd.Method, raw)
}

// SendAsync issues cmd and returns immediately. The returned future is
// completed on the session's worker pool.
func SendAsync[T any](ctx context.Context, s *Session, cmd Command[T]) *Future[T] {
	f := newFuture[T]()

	c, err := s.start(ctx, cmd.Method, cmd.Params, cmd.SessionID, cmd.Timeout)
	if err != nil {
		var zero T
		f.complete(zero, err)
		return f
	}

	if !s.trackAsync() {
		s.pending.remove(c.slot)
		c.slot.finish(slotCancelled, outcome{err: ErrSessionClosed})
		var zero T
		f.complete(zero, ErrSessionClosed)
		return f
	}
	go func() {
		defer s.async.Done()
		raw, err := s.wait(ctx, c)
		finish := func() {
			if err != nil {
				var zero T
				f.complete(zero, err)
				return
			}
			f.complete(decodeResult[T](cmd.Method, raw))
		}
		if s.pool.submit(finish) != nil {
			finish()
		}
	}()
	return f
}

// Future is the pending result of SendAsync.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(v T, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Abandoning the
// wait does not cancel the command.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the result is available.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}
