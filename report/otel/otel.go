// Package otel exports finished traces to OpenTelemetry.
//
// It converts a trace.Trace into OTel spans so graph runs show up in
// any OpenTelemetry-compatible backend (Jaeger, Zipkin, Grafana, etc.):
// one root span for the run, one child span per node execution.
package otel

import (
	"context"
	"fmt"
	"time"

	"github.com/graphtap/graphtap/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/graphtap/graphtap/report/otel"

// Exporter turns finished traces into OpenTelemetry spans.
type Exporter struct {
	tracer oteltrace.Tracer
}

// NewExporter creates an exporter using the given TracerProvider.
// If tp is nil, it uses a noop tracer provider.
func NewExporter(tp oteltrace.TracerProvider) *Exporter {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Exporter{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Export emits the run as a span tree. The root span carries run metadata;
// each node execution becomes a child span with the node's timing, step and
// status. Errored nodes mark both their span and the root as failed.
func (e *Exporter) Export(ctx context.Context, t *trace.Trace) error {
	if t == nil {
		return fmt.Errorf("nil trace")
	}

	runStart := t.Metadata.StartedAt
	if runStart.IsZero() {
		runStart = time.Now()
	}
	runEnd := t.Metadata.FinishedAt
	if runEnd.IsZero() {
		runEnd = runStart.Add(time.Duration(t.Metadata.DurationMs * float64(time.Millisecond)))
	}

	spanName := "graph.run"
	if t.Metadata.GraphName != "" {
		spanName = "graph.run." + t.Metadata.GraphName
	}

	runCtx, runSpan := e.tracer.Start(ctx, spanName, oteltrace.WithTimestamp(runStart))
	runSpan.SetAttributes(
		attribute.String("graph.run.id", t.Metadata.RunID),
		attribute.String("graph.name", t.Metadata.GraphName),
		attribute.Int("graph.run.total_nodes", t.Metadata.TotalNodes),
		attribute.Int("graph.run.error_count", t.Metadata.ErrorCount),
		attribute.Float64("graph.run.duration_ms", t.Metadata.DurationMs),
	)

	for _, node := range t.Nodes {
		e.exportNode(runCtx, node)
	}

	if t.Metadata.ErrorCount > 0 {
		runSpan.SetStatus(codes.Error, fmt.Sprintf("%d node(s) failed", t.Metadata.ErrorCount))
	} else {
		runSpan.SetStatus(codes.Ok, "")
	}
	runSpan.End(oteltrace.WithTimestamp(runEnd))
	return nil
}

func (e *Exporter) exportNode(ctx context.Context, node trace.NodeExecution) {
	start := node.StartedAt
	if start.IsZero() {
		start = time.Now()
	}
	end := node.FinishedAt
	if end.IsZero() {
		end = start.Add(time.Duration(node.DurationMs * float64(time.Millisecond)))
	}

	_, span := e.tracer.Start(ctx, "graph.node."+node.NodeName, oteltrace.WithTimestamp(start))
	span.SetAttributes(
		attribute.String("graph.node.name", node.NodeName),
		attribute.Int("graph.node.step", node.Step),
		attribute.String("graph.node.status", string(node.Status)),
		attribute.Float64("graph.node.duration_ms", node.DurationMs),
	)

	if node.Status == trace.StatusError {
		span.SetStatus(codes.Error, node.Error)
		if node.Error != "" {
			span.RecordError(fmt.Errorf("%s", node.Error))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(oteltrace.WithTimestamp(end))
}
