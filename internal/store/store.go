// Package store persists workflow context documents and the trace
// event log in an embedded libSQL database.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Workflow contexts (append-only revisions; Load returns the latest)
	SaveContext(ctx context.Context, document json.RawMessage) (int64, error)
	LoadContext(ctx context.Context) (*ContextRecord, error)
	ListRevisions(ctx context.Context, limit int) ([]*ContextRecord, error)

	// Trace log (append-only, per-run sequence)
	AppendTrace(ctx context.Context, rec *TraceRecord) error
	GetTraces(ctx context.Context, runID string, since int64) ([]*TraceRecord, error)
	ListTraces(ctx context.Context, filter TraceFilter) ([]*TraceRecord, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ContextRecord is one saved workflow context revision.
type ContextRecord struct {
	Revision int64
	Document json.RawMessage
	SavedAt  time.Time
}

// TraceRecord is one persisted trace event.
type TraceRecord struct {
	ID        int64
	RunID     string
	NodeID    string
	EventType string
	Payload   json.RawMessage
	Timestamp time.Time
	// Sequence is monotonically increasing per run, starting at 1.
	Sequence int64
}

// TraceFilter narrows ListTraces results.
type TraceFilter struct {
	RunID     string
	NodeID    string
	EventType string
	Since     *time.Time
	Limit     int
}
