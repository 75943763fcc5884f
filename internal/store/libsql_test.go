package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	path := "file:" + filepath.Join(t.TempDir(), "synapse-test.db")
	s, err := NewLibSQLStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLibSQLStore_ContextRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LoadContext(ctx)
	require.Error(t, err)
	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeStore, we.Code)

	rev1, err := s.SaveContext(ctx, json.RawMessage(`{"nodes":[],"createdAt":1}`))
	require.NoError(t, err)
	rev2, err := s.SaveContext(ctx, json.RawMessage(`{"nodes":[],"createdAt":2}`))
	require.NoError(t, err)
	assert.Greater(t, rev2, rev1)

	latest, err := s.LoadContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev2, latest.Revision)
	assert.JSONEq(t, `{"nodes":[],"createdAt":2}`, string(latest.Document))

	revs, err := s.ListRevisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, rev2, revs[0].Revision)
}

func TestLibSQLStore_RejectsEmptyContext(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveContext(context.Background(), nil)
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeStore, we.Code)
}

func TestLibSQLStore_TraceSequencePerRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendTrace(ctx, &TraceRecord{
			RunID:     "run-a",
			NodeID:    "n1",
			EventType: schema.TraceEmit,
		}))
	}
	require.NoError(t, s.AppendTrace(ctx, &TraceRecord{
		RunID:     "run-b",
		EventType: schema.TraceEmit,
	}))

	a, err := s.GetTraces(ctx, "run-a", 0)
	require.NoError(t, err)
	require.Len(t, a, 3)
	for i, rec := range a {
		assert.Equal(t, int64(i+1), rec.Sequence)
	}

	b, err := s.GetTraces(ctx, "run-b", 0)
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, int64(1), b[0].Sequence)
}

func TestLibSQLStore_GetTracesSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendTrace(ctx, &TraceRecord{RunID: "r", EventType: schema.TraceEmit}))
	}

	tail, err := s.GetTraces(ctx, "r", 3)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(4), tail[0].Sequence)
	assert.Equal(t, int64(5), tail[1].Sequence)
}

func TestLibSQLStore_ListTracesFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTrace(ctx, &TraceRecord{RunID: "r1", NodeID: "n1", EventType: schema.TraceEmit}))
	require.NoError(t, s.AppendTrace(ctx, &TraceRecord{RunID: "r1", NodeID: "n1", EventType: schema.TraceSet,
		Payload: json.RawMessage(`{"name":"x","value":1}`)}))
	require.NoError(t, s.AppendTrace(ctx, &TraceRecord{RunID: "r2", NodeID: "n2", EventType: schema.TraceChainFailed}))

	sets, err := s.ListTraces(ctx, TraceFilter{EventType: schema.TraceSet})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "r1", sets[0].RunID)
	assert.JSONEq(t, `{"name":"x","value":1}`, string(sets[0].Payload))

	byRun, err := s.ListTraces(ctx, TraceFilter{RunID: "r1"})
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	limited, err := s.ListTraces(ctx, TraceFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
