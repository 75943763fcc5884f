package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/veldt/synapse/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. trace log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Workflow contexts ---

// SaveContext appends a new context revision and returns its revision
// number. Earlier revisions are kept for rollback tooling.
func (s *LibSQLStore) SaveContext(ctx context.Context, document json.RawMessage) (int64, error) {
	if len(document) == 0 {
		return 0, schema.NewError(schema.ErrCodeStore, "context document is empty")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contexts (document, saved_at) VALUES (?, ?)`,
		string(document), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert context: %w", err)
	}
	rev, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("context revision: %w", err)
	}
	return rev, nil
}

// LoadContext returns the latest saved context revision.
func (s *LibSQLStore) LoadContext(ctx context.Context) (*ContextRecord, error) {
	rec := &ContextRecord{}
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, document, saved_at FROM contexts ORDER BY revision DESC LIMIT 1`,
	).Scan(&rec.Revision, &doc, &rec.SavedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("context", "latest")
	}
	if err != nil {
		return nil, err
	}
	rec.Document = json.RawMessage(doc)
	return rec, nil
}

// ListRevisions returns saved revisions, newest first.
func (s *LibSQLStore) ListRevisions(ctx context.Context, limit int) ([]*ContextRecord, error) {
	query := `SELECT revision, document, saved_at FROM contexts ORDER BY revision DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*ContextRecord
	for rows.Next() {
		rec := &ContextRecord{}
		var doc string
		if err := rows.Scan(&rec.Revision, &doc, &rec.SavedAt); err != nil {
			return nil, err
		}
		rec.Document = json.RawMessage(doc)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// --- Trace log ---

// AppendTrace appends a trace record with a monotonically increasing
// per-run sequence. Runs inside a transaction so concurrent writers
// cannot interleave sequence reads and writes.
func (s *LibSQLStore) AppendTrace(ctx context.Context, rec *TraceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM trace_events WHERE run_id = ?`, rec.RunID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	rec.Sequence = seq

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trace_events (run_id, node_id, event_type, payload, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, nullStr(rec.NodeID), rec.EventType, nullRaw(rec.Payload), rec.Timestamp, seq,
	)
	if err != nil {
		return fmt.Errorf("insert trace event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trace event: %w", err)
	}
	return nil
}

// GetTraces returns trace records for a run with sequence > since,
// ordered by sequence ASC.
func (s *LibSQLStore) GetTraces(ctx context.Context, runID string, since int64) ([]*TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, node_id, event_type, payload, timestamp, sequence
		 FROM trace_events WHERE run_id = ? AND sequence > ? ORDER BY sequence ASC`,
		runID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTraces(rows)
}

// ListTraces returns trace records matching the filter, newest first.
func (s *LibSQLStore) ListTraces(ctx context.Context, filter TraceFilter) ([]*TraceRecord, error) {
	var where []string
	var args []any

	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.NodeID != "" {
		where = append(where, "node_id = ?")
		args = append(args, filter.NodeID)
	}
	if filter.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, run_id, node_id, event_type, payload, timestamp, sequence FROM trace_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTraces(rows)
}

func scanTraces(rows *sql.Rows) ([]*TraceRecord, error) {
	var recs []*TraceRecord
	for rows.Next() {
		rec := &TraceRecord{}
		var nodeID, payload sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RunID, &nodeID, &rec.EventType, &payload, &rec.Timestamp, &rec.Sequence); err != nil {
			return nil, err
		}
		rec.NodeID = nodeID.String
		rec.Payload = rawOrNil(payload)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.WorkflowError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s %q not found", resource, id)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}
