// Package events implements the narrow, typed event bus referenced in
// spec.md §9 ("adopt a narrow, typed event channel per component... avoid
// ambient global emitters"). Each component owns one Bus; subscribers
// register for a specific Kind and receive a typed Event. There is no
// process-wide emitter.
package events

import (
	"sync"

	"golang.org/x/exp/maps"
)

// Kind names an event type. Components define their own Kind constants
// (channel.EventPeerConnected, syncer.EventProposalAccepted, ...).
type Kind string

// Event is the payload delivered to subscribers. Data is component-defined;
// subscribers type-assert based on Kind.
type Event struct {
	Kind Kind
	Data any
}

// Handler receives one Event at a time. Handlers run synchronously on the
// publishing goroutine — they must not block; long work should be handed
// off to a worker goroutine by the handler itself.
type Handler func(Event)

// Bus is a one-publisher, many-subscriber fan-out keyed by Kind. Safe for
// concurrent Publish/Subscribe.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers h to be called for every Event of kind. Returns an
// unsubscribe function.
func (b *Bus) Subscribe(kind Kind, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
	idx := len(b.handlers[kind]) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := b.handlers[kind]
		if idx < len(hs) {
			hs[idx] = nil
		}
	}
}

// Kinds returns every Kind with at least one subscriber, in no particular
// order. Used by components that report which event kinds they emit
// (diagnostics, introspection) without keeping a separate registry.
func (b *Bus) Kinds() []Kind {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Kind, 0, len(b.handlers))
	for k := range maps.Keys(b.handlers) {
		for _, h := range b.handlers[k] {
			if h != nil {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// Publish fans e out to every subscriber of e.Kind, in subscription order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[e.Kind]...)
	b.mu.RUnlock()
	for _, h := range hs {
		if h != nil {
			h(e)
		}
	}
}
