package cdp

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// EventType identifies a logical event variant. Generated domain packages
// declare one constant per event; the value is the wire method name.
type EventType string

// String returns the event type name.
func (t EventType) String() string { return string(t) }

// DecodeFunc decodes an event params body into its typed payload.
type DecodeFunc func(params json.RawMessage) (any, error)

// EventDescriptor binds a wire method name to its event type and decoder.
type EventDescriptor struct {
	WireName string
	Type     EventType
	Decode   DecodeFunc
}

// Describe builds a descriptor whose decoder unmarshals params into a new E
// and yields *E as the payload.
func Describe[E any](t EventType) EventDescriptor {
	return EventDescriptor{
		WireName: string(t),
		Type:     t,
		Decode: func(params json.RawMessage) (any, error) {
			ev := new(E)
			if err := json.Unmarshal(params, ev); err != nil {
				return nil, &DecodeError{Method: string(t), Type: reflect.TypeFor[E]().String(), Err: err}
			}
			return ev, nil
		},
	}
}

// Registry is an immutable lookup table from wire method name to event
// descriptor. It is built once and safe for concurrent use.
type Registry struct {
	byWire map[string]EventDescriptor
}

// NewRegistry builds a registry from descriptors. Duplicate wire names and
// descriptors without a decoder are rejected.
func NewRegistry(descs ...EventDescriptor) (*Registry, error) {
	r := &Registry{byWire: make(map[string]EventDescriptor, len(descs))}
	for _, d := range descs {
		if d.WireName == "" {
			return nil, fmt.Errorf("event descriptor for %q has no wire name", d.Type)
		}
		if d.Decode == nil {
			return nil, fmt.Errorf("event descriptor %q has no decoder", d.WireName)
		}
		if _, dup := r.byWire[d.WireName]; dup {
			return nil, fmt.Errorf("duplicate event descriptor %q", d.WireName)
		}
		r.byWire[d.WireName] = d
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Intended for
// package-level tables built from generated descriptors.
func MustRegistry(descs ...EventDescriptor) *Registry {
	r, err := NewRegistry(descs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor registered for a wire method name.
func (r *Registry) Lookup(method string) (EventDescriptor, bool) {
	if r == nil {
		return EventDescriptor{}, false
	}
	d, ok := r.byWire[method]
	return d, ok
}

// Len returns the number of registered event types.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byWire)
}

// Types returns all registered event types, sorted.
func (r *Registry) Types() []EventType {
	if r == nil {
		return nil
	}
	types := make([]EventType, 0, len(r.byWire))
	for _, d := range r.byWire {
		types = append(types, d.Type)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
