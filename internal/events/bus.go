// Package events implements the host event bus: per-kind listener lists
// fired on host events, with a before/after phase flag so trigger nodes
// can filter.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Kind identifies one host event type.
type Kind string

// Event is one bus delivery.
type Event struct {
	Kind    Kind
	Payload any
	// Before marks the pre-phase delivery of an event that fires both
	// before and after the host applies it.
	Before bool
}

// Listener receives bus events. Listeners run synchronously on the
// firing goroutine.
type Listener func(ctx context.Context, ev Event)

type registration struct {
	id uint64
	fn Listener
}

// Bus stores listeners per event kind. Registration and firing are safe
// for concurrent use; a panicking listener is isolated and logged.
type Bus struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[Kind][]*registration
	seq       atomic.Uint64
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger:    logger,
		listeners: make(map[Kind][]*registration),
	}
}

// On registers a listener for an event kind and returns its deregister
// function.
func (b *Bus) On(kind Kind, fn Listener) func() {
	reg := &registration{id: b.seq.Add(1), fn: fn}

	b.mu.Lock()
	b.listeners[kind] = append(b.listeners[kind], reg)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		regs := b.listeners[kind]
		for i, r := range regs {
			if r.id == reg.id {
				b.listeners[kind] = append(regs[:i:i], regs[i+1:]...)
				break
			}
		}
	}
}

// Fire invokes every listener registered for the kind. Listener panics
// are recovered and logged; remaining listeners still run.
func (b *Bus) Fire(ctx context.Context, kind Kind, payload any, before bool) {
	b.mu.RLock()
	regs := make([]*registration, len(b.listeners[kind]))
	copy(regs, b.listeners[kind])
	b.mu.RUnlock()

	ev := Event{Kind: kind, Payload: payload, Before: before}
	for _, reg := range regs {
		b.invoke(ctx, reg, ev)
	}
}

func (b *Bus) invoke(ctx context.Context, reg *registration, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				slog.String("event_kind", string(ev.Kind)),
				slog.Any("panic", r),
			)
		}
	}()
	reg.fn(ctx, ev)
}

// Count returns the number of listeners registered for a kind.
func (b *Bus) Count(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}

// Clear drops every listener. Used on engine shutdown.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[Kind][]*registration)
}
