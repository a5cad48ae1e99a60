package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/graphtap/graphtap/store"
	"github.com/graphtap/graphtap/trace"
)

func archivedTrace(runID, graph string, startedAt time.Time, errorCount int) *trace.Trace {
	t := trace.New()
	t.Metadata.RunID = runID
	t.Metadata.GraphName = graph
	t.Metadata.StartedAt = startedAt
	t.Metadata.FinishedAt = startedAt.Add(25 * time.Millisecond)
	t.Metadata.DurationMs = 25
	t.Metadata.TotalNodes = 1
	t.Metadata.ErrorCount = errorCount
	t.Nodes = []trace.NodeExecution{
		{NodeName: "retrieve", Step: 1, Status: trace.StatusSuccess, DurationMs: 25},
	}
	return t
}

func TestStore_SaveLoadAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()
	if err := s.SaveTrace(ctx, archivedTrace("r1", "pipeline", now, 0)); err != nil {
		t.Fatalf("save trace: %v", err)
	}
	if err := s.SaveTrace(ctx, archivedTrace("r2", "pipeline", now.Add(time.Second), 1)); err != nil {
		t.Fatalf("save trace: %v", err)
	}

	loaded, err := s.LoadTrace(ctx, "r1")
	if err != nil {
		t.Fatalf("load trace: %v", err)
	}
	if loaded.Metadata.GraphName != "pipeline" || len(loaded.Nodes) != 1 {
		t.Fatalf("unexpected loaded trace: %+v", loaded.Metadata)
	}

	runs, err := s.ListRuns(ctx, store.ListQuery{Limit: 20})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "r2" {
		t.Fatalf("expected most recent run first, got %q", runs[0].RunID)
	}
	if runs[0].ErrorCount != 1 {
		t.Fatalf("unexpected summary: %+v", runs[0])
	}
}

func TestStore_SaveOverwritesByRunID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()
	if err := s.SaveTrace(ctx, archivedTrace("r1", "pipeline", now, 0)); err != nil {
		t.Fatalf("save trace: %v", err)
	}
	updated := archivedTrace("r1", "pipeline-v2", now, 1)
	if err := s.SaveTrace(ctx, updated); err != nil {
		t.Fatalf("resave trace: %v", err)
	}

	loaded, err := s.LoadTrace(ctx, "r1")
	if err != nil {
		t.Fatalf("load trace: %v", err)
	}
	if loaded.Metadata.GraphName != "pipeline-v2" {
		t.Fatalf("expected updated trace, got %q", loaded.Metadata.GraphName)
	}
	runs, err := s.ListRuns(ctx, store.ListQuery{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run after overwrite, got %d", len(runs))
	}
}

func TestStore_LoadMissingRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.LoadTrace(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AssignsRunID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()

	tr := trace.New()
	if err := s.SaveTrace(context.Background(), tr); err != nil {
		t.Fatalf("save trace: %v", err)
	}
	if tr.Metadata.RunID == "" {
		t.Fatal("expected a run id to be assigned")
	}
	if _, err := s.LoadTrace(context.Background(), tr.Metadata.RunID); err != nil {
		t.Fatalf("load by assigned id: %v", err)
	}
}
