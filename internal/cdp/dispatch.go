package cdp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event is a decoded event delivered to listeners.
// SessionID is empty unless the frame carried one (flat mode).
type Event struct {
	SessionID string
	Type      EventType
	Payload   any
}

// Listener receives events. It runs on the worker pool; a panic is
// recovered and logged without affecting other listeners.
type Listener func(Event)

// Filter selects which events a listener receives. An empty Type matches
// every recognized event; an empty SessionID matches every session.
type Filter struct {
	Type      EventType
	SessionID string
}

func (f Filter) matches(ev Event) bool {
	if f.Type != "" && f.Type != ev.Type {
		return false
	}
	if f.SessionID != "" && f.SessionID != ev.SessionID {
		return false
	}
	return true
}

type registration struct {
	id     string
	filter Filter
	fn     Listener
}

// rawEvent is an event frame as handed over by the read loop.
type rawEvent struct {
	method    string
	params    json.RawMessage
	sessionID string
}

// dispatcher decodes event frames in arrival order and schedules one
// independent delivery per matching listener on the worker pool.
type dispatcher struct {
	registry *Registry
	pool     *workerPool
	logger   *slog.Logger
	owner    string // session id, used for generated listener ids

	mu        sync.RWMutex
	listeners map[string]*registration
	seq       atomic.Int64

	in   *queue[rawEvent]
	done chan struct{}
}

func newDispatcher(owner string, registry *Registry, pool *workerPool, logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		registry:  registry,
		pool:      pool,
		logger:    logger,
		owner:     owner,
		listeners: make(map[string]*registration),
		in:        newQueue[rawEvent](),
		done:      make(chan struct{}),
	}
	go d.loop()
	return d
}

// enqueue hands an event frame to the dispatcher. It never blocks.
func (d *dispatcher) enqueue(method string, params json.RawMessage, sessionID string) {
	if !d.in.Push(rawEvent{method: method, params: params, sessionID: sessionID}) {
		d.logger.Debug("event dropped after close", "method", method)
	}
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		raw, ok := d.in.Pop()
		if !ok {
			return
		}
		d.dispatch(raw)
	}
}

// dispatch decodes one event and schedules its deliveries. Unknown methods
// are discarded silently; decode failures are logged and dropped.
func (d *dispatcher) dispatch(raw rawEvent) {
	desc, ok := d.registry.Lookup(raw.method)
	if !ok {
		d.logger.Debug("unrecognized event", "method", raw.method)
		return
	}

	payload, err := desc.Decode(raw.params)
	if err != nil {
		d.logger.Warn("event decode failed", "method", raw.method, "error", err)
		return
	}

	ev := Event{SessionID: raw.sessionID, Type: desc.Type, Payload: payload}
	for _, reg := range d.snapshot() {
		if !reg.filter.matches(ev) {
			continue
		}
		fn := reg.fn
		id := reg.id
		err := d.pool.submit(func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("event listener panicked",
						"listener", id,
						"event", ev.Type,
						"panic", fmt.Sprint(r),
					)
				}
			}()
			fn(ev)
		})
		if err != nil {
			d.logger.Debug("event delivery skipped", "listener", id, "error", err)
		}
	}
}

func (d *dispatcher) snapshot() []*registration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	regs := make([]*registration, 0, len(d.listeners))
	for _, r := range d.listeners {
		regs = append(regs, r)
	}
	return regs
}

// add registers fn. An empty id gets a generated one.
func (d *dispatcher) add(id string, filter Filter, fn Listener) string {
	if id == "" {
		kind := "all"
		if filter.Type != "" {
			kind = string(filter.Type)
		}
		id = fmt.Sprintf("%s-%s-%d", d.owner, kind, d.seq.Add(1))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[id] = &registration{id: id, filter: filter, fn: fn}
	return id
}

func (d *dispatcher) remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.listeners[id]; !ok {
		return false
	}
	delete(d.listeners, id)
	return true
}

func (d *dispatcher) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = make(map[string]*registration)
}

func (d *dispatcher) count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// stop closes the intake and waits for already queued events to be scheduled.
func (d *dispatcher) stop() {
	d.in.Close()
	<-d.done
}
