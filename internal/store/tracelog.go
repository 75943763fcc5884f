package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/veldt/synapse/pkg/schema"
)

// TraceLog provides replay operations on top of the raw trace table.
type TraceLog struct {
	store *LibSQLStore
}

// NewTraceLog wraps a LibSQLStore.
func NewTraceLog(s *LibSQLStore) *TraceLog {
	return &TraceLog{store: s}
}

// Append appends one trace record.
func (tl *TraceLog) Append(ctx context.Context, rec *TraceRecord) error {
	return tl.store.AppendTrace(ctx, rec)
}

// Tail returns a run's trace records with sequence > since.
func (tl *TraceLog) Tail(ctx context.Context, runID string, since int64) ([]*TraceRecord, error) {
	return tl.store.GetTraces(ctx, runID, since)
}

// setPayload is the persisted shape of a "set" trace record.
type setPayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ReplayVariables reconstructs a run's final variable bag from its "set"
// trace records. Returns an error on sequence gaps, which indicate a
// corrupted log.
func (tl *TraceLog) ReplayVariables(ctx context.Context, runID string) (map[string]any, error) {
	recs, err := tl.store.GetTraces(ctx, runID, 0)
	if err != nil {
		return nil, fmt.Errorf("get traces for replay: %w", err)
	}

	for i, rec := range recs {
		expected := int64(i + 1)
		if rec.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in run %s: expected %d, got %d", runID, expected, rec.Sequence)
		}
	}

	vars := make(map[string]any)
	for _, rec := range recs {
		if rec.EventType != schema.TraceSet || len(rec.Payload) == 0 {
			continue
		}
		var p setPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"decode set payload at sequence %d of run %s: %s", rec.Sequence, runID, err.Error()).WithCause(err)
		}
		if p.Name != "" {
			vars[p.Name] = p.Value
		}
	}
	return vars, nil
}

// FailedRuns returns the run ids that recorded a chain failure, newest
// first.
func (tl *TraceLog) FailedRuns(ctx context.Context, limit int) ([]string, error) {
	recs, err := tl.store.ListTraces(ctx, TraceFilter{
		EventType: schema.TraceChainFailed,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(recs))
	runs := make([]string, 0, len(recs))
	for _, rec := range recs {
		if seen[rec.RunID] {
			continue
		}
		seen[rec.RunID] = true
		runs = append(runs, rec.RunID)
	}
	return runs, nil
}
