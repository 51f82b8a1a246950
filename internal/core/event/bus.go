// Package event implements the per-owner publish/subscribe registry used by
// sessions, calls, conferences and media units.
//
// A Bus is owned by one session thread and is not safe for concurrent use.
package event

import (
	"fmt"
	"slices"

	"github.com/dkeye/voxengine/internal/domain"
)

// Event is implemented by every payload dispatched on a Bus.
type Event interface {
	Kind() Kind
}

type Handler func(Event) error

// ListenerID identifies one registration. IDs are allocated by the bus, so a
// registration can never be added twice.
type ListenerID uint64

// HandlerError reports a handler that returned an error or panicked.
type HandlerError struct {
	Bus      string
	Kind     Kind
	Listener ListenerID
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: handler %d for %s failed: %v", e.Bus, e.Listener, e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

type (
	FaultFunc func(*HandlerError)
	TraceFunc func(bus string, ev Event)
)

type Option func(*Bus)

// WithFault installs the hook that learns about failed handlers.
func WithFault(f FaultFunc) Option { return func(b *Bus) { b.fault = f } }

// WithTrace installs a hook called once per dispatched event, before handlers run.
func WithTrace(f TraceFunc) Option { return func(b *Bus) { b.trace = f } }

type listener struct {
	id ListenerID
	fn Handler
}

type Bus struct {
	name      string
	allowed   map[Kind]struct{}
	listeners map[Kind][]listener
	next      ListenerID
	sealed    bool

	fault FaultFunc
	trace TraceFunc
}

func NewBus(name string, kinds []Kind, opts ...Option) *Bus {
	b := &Bus{
		name:      name,
		allowed:   make(map[Kind]struct{}, len(kinds)),
		listeners: make(map[Kind][]listener),
	}
	for _, k := range kinds {
		b.allowed[k] = struct{}{}
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bus) Name() string { return b.name }

// Register appends h to the handlers of kind. Handlers run in registration order.
// Every call yields a new ListenerID, so registering the same function twice
// makes it run twice.
func (b *Bus) Register(kind Kind, h Handler) (ListenerID, error) {
	if h == nil {
		return 0, domain.NewError(domain.KindConfiguration, "addEventListener", "handler for %s is not a function", kind)
	}
	if _, ok := b.allowed[kind]; !ok {
		return 0, domain.NewError(domain.KindConfiguration, "addEventListener", "%s is not emitted by %s", kind, b.name)
	}
	if b.sealed {
		return 0, domain.NewError(domain.KindInvalidState, "addEventListener", "%s no longer dispatches events", b.name)
	}
	b.next++
	id := b.next
	// Clip forces append to copy, so a dispatch already iterating the old
	// slice never sees this listener.
	b.listeners[kind] = append(slices.Clip(b.listeners[kind]), listener{id: id, fn: h})
	return id, nil
}

// Unregister removes the given registrations of kind, or all of them when no
// id is passed. Unknown ids are ignored. It returns how many were removed.
func (b *Bus) Unregister(kind Kind, ids ...ListenerID) int {
	cur := b.listeners[kind]
	if len(cur) == 0 {
		return 0
	}
	if len(ids) == 0 {
		delete(b.listeners, kind)
		return len(cur)
	}
	kept := make([]listener, 0, len(cur))
	for _, l := range cur {
		if !slices.Contains(ids, l.id) {
			kept = append(kept, l)
		}
	}
	removed := len(cur) - len(kept)
	if len(kept) == 0 {
		delete(b.listeners, kind)
	} else {
		b.listeners[kind] = kept
	}
	return removed
}

// Dispatch runs every handler registered for ev.Kind() in order. The first
// failure stops the loop, is reported to the fault hook and returned.
// A sealed bus drops events silently.
func (b *Bus) Dispatch(ev Event) error {
	if b.sealed {
		return nil
	}
	kind := ev.Kind()
	if b.trace != nil {
		b.trace(b.name, ev)
	}
	for _, l := range b.listeners[kind] {
		if err := invoke(l.fn, ev); err != nil {
			herr := &HandlerError{Bus: b.name, Kind: kind, Listener: l.id, Err: err}
			if b.fault != nil {
				b.fault(herr)
			}
			return herr
		}
		if b.sealed {
			// a handler tore the owner down; later handlers must not run
			return nil
		}
	}
	return nil
}

func invoke(fn Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ev)
}

// Seal stops all further dispatch and registration. Listeners are dropped.
func (b *Bus) Seal() {
	b.sealed = true
	clear(b.listeners)
}

func (b *Bus) Sealed() bool { return b.sealed }

// Count reports how many handlers are registered for kind.
func (b *Bus) Count(kind Kind) int { return len(b.listeners[kind]) }
