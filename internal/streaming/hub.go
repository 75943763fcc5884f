package streaming

import "context"

// TraceEvent is a real-time trace record emitted during graph execution.
type TraceEvent struct {
	RunID     string `json:"run_id"`
	NodeID    string `json:"node_id,omitempty"`
	EventType string `json:"event_type"`
	Payload   any    `json:"payload,omitempty"`
}

// Filter specifies which trace events a subscriber wants to receive.
// Zero-value fields match everything.
type Filter struct {
	RunID      string   `json:"run_id,omitempty"`
	NodeID     string   `json:"node_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(e TraceEvent) bool {
	if f.RunID != "" && f.RunID != e.RunID {
		return false
	}
	if f.NodeID != "" && f.NodeID != e.NodeID {
		return false
	}
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, t := range f.EventTypes {
		if t == e.EventType {
			return true
		}
	}
	return false
}

// Hub provides pub/sub for live execution trace records.
type Hub interface {
	Publish(ctx context.Context, event TraceEvent) error
	Subscribe(ctx context.Context, filter Filter) (<-chan TraceEvent, func(), error)
}
