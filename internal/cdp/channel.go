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
)

// channel owns one websocket: it serializes outbound requests and runs the
// only reader of the socket. The read loop never blocks on application code.
type channel struct {
	conn    Conn
	writeMu sync.Mutex

	pending *pendingTable
	events  *dispatcher
	logger  *slog.Logger

	// onLost is called once, from the read loop, if the socket fails while
	// the channel is still open.
	onLost func(error)

	// closed signals that the channel is shutting down
	closed   atomic.Bool
	closeErr error
	closeMu  sync.Mutex

	// done signals that the read loop has exited
	done chan struct{}
}

func newChannel(conn Conn, pending *pendingTable, events *dispatcher, logger *slog.Logger, onLost func(error)) *channel {
	c := &channel{
		conn:    conn,
		pending: pending,
		events:  events,
		logger:  logger,
		onLost:  onLost,
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// writeTimeout bounds a single frame write. The socket is closed when a
// write context ends, so the caller's context never reaches the socket.
const writeTimeout = 10 * time.Second

// write serializes req and sends it as a single text frame. ctx only decides
// whether the write starts; once started it runs under the channel's own
// deadline so one caller cannot tear the socket down for the others.
func (c *channel) write(ctx context.Context, req Request) error {
	if c.closed.Load() {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug("send", "id", req.ID, "method", req.Method, "sessionId", req.SessionID)

	c.writeMu.Lock()
	if err := ctx.Err(); err != nil {
		c.writeMu.Unlock()
		return err
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	err = c.conn.Write(wctx, websocket.MessageText, data)
	cancel()
	c.writeMu.Unlock()
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	return nil
}

// close stops the read loop and closes the socket. Safe to call repeatedly.
func (c *channel) close() error {
	if c.closed.Swap(true) {
		<-c.done
		return nil
	}

	c.closeMu.Lock()
	err := c.conn.Close(websocket.StatusNormalClosure, "session closing")
	c.closeMu.Unlock()

	// Wait for read loop to exit
	<-c.done

	return err
}

// err returns the read failure that terminated the loop, if any.
func (c *channel) err() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closeErr
}

// readLoop reads frames until the socket fails or the channel is closed.
func (c *channel) readLoop() {
	defer close(c.done)

	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if c.closed.Swap(true) {
				c.logger.Debug("read loop stopped", "error", err)
				return
			}
			c.closeMu.Lock()
			c.closeErr = err
			c.closeMu.Unlock()
			c.logger.Warn("connection lost", "error", err, "status", websocket.CloseStatus(err))
			if c.onLost != nil {
				c.onLost(err)
			}
			return
		}
		c.handle(data)
	}
}

// handle classifies one frame and routes it. Nothing here is surfaced to a
// caller except through the matching correlation slot.
func (c *channel) handle(data []byte) {
	f, err := classifyFrame(data)
	if err != nil {
		c.logger.Debug("dropping malformed frame", "error", err)
		return
	}

	switch f.kind {
	case frameResult:
		if !c.pending.resolve(f.id, outcome{result: f.result}) {
			c.logger.Debug("discarding result with no pending command", "id", f.id)
		}
	case frameError:
		if !f.hasID {
			c.logger.Debug("discarding error without id", "error", f.err)
			return
		}
		if !c.pending.resolve(f.id, outcome{err: f.err}) {
			c.logger.Debug("discarding error with no pending command", "id", f.id, "error", f.err)
		}
	case frameEvent:
		c.events.enqueue(f.method, f.params, f.sessionID)
	default:
		c.logger.Debug("dropping unclassified frame", "size", len(data))
	}
}

// isClosedConn reports whether err comes from a normal websocket close.
func isClosedConn(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, ErrSessionClosed)
}
