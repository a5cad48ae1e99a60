// Package store defines durable archival of finished traces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/graphtap/graphtap/trace"
)

// ErrNotFound is returned when no trace exists for the requested run id.
var ErrNotFound = errors.New("trace not found")

type ListQuery struct {
	Limit  int
	Offset int
}

// RunSummary is the listing row for an archived run.
type RunSummary struct {
	RunID      string    `json:"runId"`
	GraphName  string    `json:"graphName"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs float64   `json:"durationMs"`
	TotalNodes int       `json:"totalNodes"`
	ErrorCount int       `json:"errorCount"`
}

type Store interface {
	SaveTrace(ctx context.Context, t *trace.Trace) error
	LoadTrace(ctx context.Context, runID string) (*trace.Trace, error)
	ListRuns(ctx context.Context, query ListQuery) ([]RunSummary, error)
	Close() error
}
