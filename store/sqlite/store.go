// Package sqlite archives traces in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/graphtap/graphtap/store"
	"github.com/graphtap/graphtap/trace"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const defaultLimit = 200

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the trace archive at path.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("trace archive path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize trace schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveTrace upserts the full trace document keyed by run id. A trace with
// no run id gets one assigned so it can still be retrieved later.
func (s *Store) SaveTrace(ctx context.Context, t *trace.Trace) error {
	if s == nil || s.db == nil {
		return nil
	}
	if t == nil {
		return fmt.Errorf("nil trace")
	}
	if t.Metadata.RunID == "" {
		t.Metadata.RunID = uuid.NewString()
	}
	payload, err := t.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	const q = `
INSERT INTO traces (run_id, graph_name, started_at, duration_ms, total_nodes, error_count, payload, saved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  graph_name = excluded.graph_name,
  started_at = excluded.started_at,
  duration_ms = excluded.duration_ms,
  total_nodes = excluded.total_nodes,
  error_count = excluded.error_count,
  payload = excluded.payload,
  saved_at = excluded.saved_at;
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		t.Metadata.RunID,
		t.Metadata.GraphName,
		t.Metadata.StartedAt.UTC().Format(time.RFC3339Nano),
		t.Metadata.DurationMs,
		t.Metadata.TotalNodes,
		t.Metadata.ErrorCount,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save trace: %w", err)
	}
	return nil
}

// LoadTrace returns the archived trace for runID, or store.ErrNotFound.
func (s *Store) LoadTrace(ctx context.Context, runID string) (*trace.Trace, error) {
	if s == nil || s.db == nil {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("runID is required")
	}
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM traces WHERE run_id = ?;", runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}
	t, err := trace.Parse([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode archived trace: %w", err)
	}
	return t, nil
}

// ListRuns returns archive summaries, most recent first.
func (s *Store) ListRuns(ctx context.Context, query store.ListQuery) ([]store.RunSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	const q = `
SELECT run_id, graph_name, started_at, duration_ms, total_nodes, error_count
FROM traces
ORDER BY started_at DESC
LIMIT ? OFFSET ?;
`
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := make([]store.RunSummary, 0, limit)
	for rows.Next() {
		var (
			summary store.RunSummary
			tsRaw   string
		)
		if err := rows.Scan(
			&summary.RunID,
			&summary.GraphName,
			&tsRaw,
			&summary.DurationMs,
			&summary.TotalNodes,
			&summary.ErrorCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		if tsRaw != "" {
			if ts, err := time.Parse(time.RFC3339Nano, tsRaw); err == nil {
				summary.StartedAt = ts
			}
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
