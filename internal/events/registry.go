package events

import (
	"fmt"
	"sort"
	"sync"
)

// NotFoundError reports an event name with no registration. It is a distinct
// failure from an event that ran and failed: callers can tell "no such
// event" apart from "event executed with errors".
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no event registered under %q", e.Name)
}

// Registry maps event names to their implementations. Registration is an
// explicit startup step; there is no runtime filesystem introspection, and
// the registry itself is not an event.
type Registry struct {
	mu     sync.RWMutex
	events map[string]Event
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{events: make(map[string]Event)}
}

// Register adds ev under its name. Empty and duplicate names are rejected so
// a wiring mistake surfaces at startup rather than at dispatch time.
func (r *Registry) Register(ev Event) error {
	name := ev.Name()
	if name == "" {
		return fmt.Errorf("event has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[name]; exists {
		return fmt.Errorf("event %q already registered", name)
	}
	r.events[name] = ev
	return nil
}

// Resolve returns the event registered under name, or a *NotFoundError.
func (r *Registry) Resolve(name string) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ev, ok := r.events[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return ev, nil
}

// Discover snapshots the current registrations. The snapshot is rebuilt on
// every call, so callers that registered events since the last call always
// see the full set.
func (r *Registry) Discover() map[string]Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Event, len(r.events))
	for name, ev := range r.events {
		out[name] = ev
	}
	return out
}

// Names returns the registered event names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.events))
	for name := range r.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
