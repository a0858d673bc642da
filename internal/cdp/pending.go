package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// slotState is the lifecycle of a correlation slot. Pending is the only
// non-terminal state; exactly one terminal transition is permitted.
type slotState int32

const (
	slotPending slotState = iota
	slotFulfilled
	slotTimedOut
	slotCancelled
)

// String returns a human-readable name for the slot state.
func (s slotState) String() string {
	switch s {
	case slotPending:
		return "pending"
	case slotFulfilled:
		return "fulfilled"
	case slotTimedOut:
		return "timed out"
	case slotCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// outcome is what a slot delivers to its waiter: a result body or an error.
type outcome struct {
	result json.RawMessage
	err    error
}

// slot is a single-fulfillment completion for one outstanding request id.
type slot struct {
	id     int64
	method string
	state  atomic.Int32
	ch     chan outcome // buffered 1, written at most once
}

// finish performs the terminal transition. It reports false, and delivers
// nothing, if the slot was already terminal.
func (s *slot) finish(to slotState, o outcome) bool {
	if !s.state.CompareAndSwap(int32(slotPending), int32(to)) {
		return false
	}
	s.ch <- o
	return true
}

func (s *slot) State() slotState {
	return slotState(s.state.Load())
}

// pendingTable maps request ids to their slots. A slot is removed from the
// table on every terminal transition.
type pendingTable struct {
	mu     sync.Mutex
	slots  map[int64]*slot
	closed error // set once cancelAll has run
}

func newPendingTable() *pendingTable {
	return &pendingTable{slots: make(map[int64]*slot)}
}

// register creates a pending slot for id. Registering an id twice is an
// invariant violation and panics. After cancelAll, register returns the
// cancellation error.
func (t *pendingTable) register(id int64, method string) (*slot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed != nil {
		return nil, t.closed
	}
	if _, exists := t.slots[id]; exists {
		panic(fmt.Sprintf("cdp: duplicate request id %d", id))
	}
	s := &slot{id: id, method: method, ch: make(chan outcome, 1)}
	t.slots[id] = s
	return s, nil
}

// take removes and returns the slot for id.
func (t *pendingTable) take(id int64) (*slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[id]
	if ok {
		delete(t.slots, id)
	}
	return s, ok
}

// remove drops s from the table if it is still the registered slot for its id.
func (t *pendingTable) remove(s *slot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.slots[s.id]; ok && cur == s {
		delete(t.slots, s.id)
	}
}

// resolve fulfills the slot for id. It reports false when no slot is
// waiting (unknown id, or already timed out) or the slot was already terminal.
func (t *pendingTable) resolve(id int64, o outcome) bool {
	s, ok := t.take(id)
	if !ok {
		return false
	}
	return s.finish(slotFulfilled, o)
}

// await blocks until s is fulfilled, timeout elapses, or ctx is done.
// On timeout or cancellation the slot is transitioned and evicted. If a
// result races the timer, the result wins.
func (t *pendingTable) await(ctx context.Context, s *slot, timeout time.Duration) (json.RawMessage, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		timer = tm.C
	}

	select {
	case o := <-s.ch:
		return o.result, o.err
	case <-timer:
		return t.abandon(s, slotTimedOut, &TimeoutError{Method: s.method, ID: s.id, After: timeout})
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Method: s.method, ID: s.id, After: timeout}
			return t.abandon(s, slotTimedOut, err)
		}
		return t.abandon(s, slotCancelled, fmt.Errorf("cdp: %s (id %d) cancelled: %w", s.method, s.id, err))
	}
}

// abandon moves s to a terminal state on the waiter's side. If the receive
// loop got there first, its outcome is returned instead.
func (t *pendingTable) abandon(s *slot, to slotState, err error) (json.RawMessage, error) {
	t.remove(s)
	if s.finish(to, outcome{err: err}) {
		<-s.ch
		return nil, err
	}
	o := <-s.ch
	return o.result, o.err
}

// cancelAll fails every pending slot with err and refuses new registrations.
func (t *pendingTable) cancelAll(err error) int {
	t.mu.Lock()
	if t.closed == nil {
		t.closed = err
	}
	slots := t.slots
	t.slots = make(map[int64]*slot)
	t.mu.Unlock()

	n := 0
	for _, s := range slots {
		if s.finish(slotCancelled, outcome{err: err}) {
			n++
		}
	}
	return n
}

// failAll fails every pending slot with err but keeps accepting
// registrations. Used when the connection drops underneath the session.
func (t *pendingTable) failAll(err error) int {
	t.mu.Lock()
	slots := t.slots
	t.slots = make(map[int64]*slot)
	t.mu.Unlock()

	n := 0
	for _, s := range slots {
		if s.finish(slotCancelled, outcome{err: err}) {
			n++
		}
	}
	return n
}

// len returns the number of pending slots.
func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
