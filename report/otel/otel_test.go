package otel

import (
	"context"
	"testing"
	"time"

	"github.com/graphtap/graphtap/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func exportedTrace() *trace.Trace {
	started := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	t := trace.New()
	t.Metadata.RunID = "run-123"
	t.Metadata.GraphName = "pipeline"
	t.Metadata.StartedAt = started
	t.Metadata.FinishedAt = started.Add(30 * time.Millisecond)
	t.Metadata.DurationMs = 30
	t.Metadata.TotalNodes = 2
	t.Metadata.ErrorCount = 1
	t.Nodes = []trace.NodeExecution{
		{
			NodeName:   "retrieve",
			Step:       1,
			Status:     trace.StatusSuccess,
			StartedAt:  started,
			FinishedAt: started.Add(10 * time.Millisecond),
			DurationMs: 10,
		},
		{
			NodeName:   "rank",
			Step:       2,
			Status:     trace.StatusError,
			Error:      "vector store timeout",
			StartedAt:  started.Add(10 * time.Millisecond),
			FinishedAt: started.Add(30 * time.Millisecond),
			DurationMs: 20,
		},
	}
	return t
}

func TestExportEmitsSpanTree(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	err := NewExporter(tp).Export(context.Background(), exportedTrace())
	if err != nil {
		t.Fatal(err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}

	var root tracetest.SpanStub
	byName := make(map[string]tracetest.SpanStub, len(spans))
	for _, span := range spans {
		byName[span.Name] = span
		if span.Name == "graph.run.pipeline" {
			root = span
		}
	}
	if root.Name == "" {
		t.Fatalf("missing run span, got: %v", names(spans))
	}

	attrMap := attrToMap(root.Attributes)
	if v := attrMap["graph.run.id"]; v != "run-123" {
		t.Errorf("missing or wrong graph.run.id: %v", attrMap)
	}
	if root.Status.Code != codes.Error {
		t.Errorf("run span should be marked failed, got %v", root.Status.Code)
	}

	node, ok := byName["graph.node.rank"]
	if !ok {
		t.Fatalf("missing node span, got: %v", names(spans))
	}
	if node.Parent.SpanID() != root.SpanContext.SpanID() {
		t.Error("node span is not a child of the run span")
	}
	if node.Status.Code != codes.Error {
		t.Errorf("errored node span should carry error status, got %v", node.Status.Code)
	}
	if len(node.Events) == 0 {
		t.Error("expected error event recorded on node span")
	}

	retrieve, found := byName["graph.node.retrieve"]
	if !found {
		t.Fatalf("missing node span, got: %v", names(spans))
	}
	if retrieve.Status.Code != codes.Ok {
		t.Errorf("successful node span should carry ok status, got %v", retrieve.Status.Code)
	}
}

func TestExportNilTracerProvider(t *testing.T) {
	if err := NewExporter(nil).Export(context.Background(), exportedTrace()); err != nil {
		t.Errorf("expected no error with nil provider, got: %v", err)
	}
}

func TestExportNilTrace(t *testing.T) {
	if err := NewExporter(nil).Export(context.Background(), nil); err == nil {
		t.Error("expected error for nil trace")
	}
}

func names(spans tracetest.SpanStubs) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Name
	}
	return out
}

func attrToMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}
