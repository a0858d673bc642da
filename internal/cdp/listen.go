package cdp

import (
	"sync"
)

// On registers a typed consumer for one event type. The payload is
// delivered as *E; a payload of any other type is logged and skipped.
func On[E any](s *Session, t EventType, fn func(sessionID string, ev *E)) string {
	return s.AddListener(Filter{Type: t}, func(ev Event) {
		payload, ok := ev.Payload.(*E)
		if !ok {
			s.logger.Warn("event payload type mismatch", "event", t, "payload", ev.Payload)
			return
		}
		fn(ev.SessionID, payload)
	})
}

// Collector accumulates events of one type as they arrive.
type Collector[E any] struct {
	mu     sync.Mutex
	events []*E
	notify chan struct{}
}

// Collect registers a listener that appends every event of type t to the
// returned collector. Remove it with RemoveListener(id).
func Collect[E any](s *Session, t EventType) (c *Collector[E], id string) {
	c = &Collector[E]{notify: make(chan struct{}, 1)}
	id = On(s, t, func(_ string, ev *E) {
		c.mu.Lock()
		c.events = append(c.events, ev)
		c.mu.Unlock()
		select {
		case c.notify <- struct{}{}:
		default:
		}
	})
	return c, id
}

// Events returns a copy of the collected events in delivery order.
func (c *Collector[E]) Events() []*E {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*E, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of collected events.
func (c *Collector[E]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Notify receives a value after one or more events were collected.
func (c *Collector[E]) Notify() <-chan struct{} {
	return c.notify
}
