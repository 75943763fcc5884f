package streaming

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultChannelBuffer = 64

type subscriber struct {
	ch      chan TraceEvent
	filter  Filter
	dropped atomic.Uint64
}

// MemoryHub is an in-memory Hub backed by buffered channels. Publish
// never blocks an execution chain: a subscriber that falls behind its
// buffer loses events, and the loss is counted per subscriber rather
// than silent.
type MemoryHub struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewMemoryHub creates a new MemoryHub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs: make(map[uint64]*subscriber),
	}
}

// Publish delivers an event to every subscriber whose filter matches.
func (h *MemoryHub) Publish(ctx context.Context, event TraceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe opens a filtered subscription. The cancel function closes
// the subscription; events arriving while the buffer is full are
// counted as dropped.
func (h *MemoryHub) Subscribe(ctx context.Context, filter Filter) (<-chan TraceEvent, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	id := h.seq.Add(1)
	sub := &subscriber{
		ch:     make(chan TraceEvent, defaultChannelBuffer),
		filter: filter,
	}

	h.mu.Lock()
	h.subs[id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}

	return sub.ch, cancel, nil
}

// Dropped returns the total number of events lost across all
// subscribers since the hub was created, including subscribers that
// have since cancelled.
func (h *MemoryHub) Dropped() uint64 {
	return h.dropped.Load()
}

// Subscribers returns the number of open subscriptions.
func (h *MemoryHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
