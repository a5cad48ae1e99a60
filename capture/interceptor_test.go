package capture

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/graphtap/graphtap/event"
	"github.com/graphtap/graphtap/trace"
)

var base = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

// driveNode pushes a full start/finish triple for one node execution.
func driveNode(c *Interceptor, corr, node string, output map[string]any, startMs, endMs int) {
	c.NodeStarted(event.Event{CorrelationID: corr, ParentID: "run", NodeID: node, Timestamp: at(startMs)})
	c.NodeFinished(event.Event{CorrelationID: corr, ParentID: "run", Payload: output, Timestamp: at(endMs)})
}

func TestInterceptor_SequentialRun(t *testing.T) {
	c := NewInterceptor()
	c.GraphStarted(event.Event{CorrelationID: "run", Payload: map[string]any{"query": "q"}, Timestamp: at(0)})
	driveNode(c, "n1", "a", map[string]any{"docs": "d"}, 1, 5)
	driveNode(c, "n2", "b", map[string]any{"draft": "x"}, 5, 12)
	driveNode(c, "n3", "c", map[string]any{"answer": "y"}, 12, 20)
	c.GraphFinished(event.Event{CorrelationID: "run", Payload: map[string]any{"answer": "y"}, Timestamp: at(20)})

	tr := c.Trace()
	if diff := cmp.Diff([]string{"a", "b", "c"}, tr.NodeNames()); diff != "" {
		t.Fatalf("unexpected node order (-want +got):\n%s", diff)
	}
	for i, n := range tr.Nodes {
		if n.Step != i+1 {
			t.Fatalf("node %d: want step %d got %d", i, i+1, n.Step)
		}
		if n.Status != trace.StatusSuccess {
			t.Fatalf("node %q not successful: %+v", n.NodeName, n)
		}
	}
	if len(tr.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(tr.Edges))
	}
	if tr.Edges[0].From != "a" || tr.Edges[0].To != "b" || tr.Edges[1].From != "b" || tr.Edges[1].To != "c" {
		t.Fatalf("unexpected edges: %+v", tr.Edges)
	}
	if tr.Edges[1].Step != tr.Nodes[2].Step {
		t.Fatalf("edge must inherit destination step: %+v", tr.Edges[1])
	}
	if !tr.Successful() || tr.Metadata.ErrorCount != 0 || tr.Metadata.TotalNodes != 3 {
		t.Fatalf("unexpected metadata: %+v", tr.Metadata)
	}
	if tr.Metadata.DurationMs != 20 {
		t.Fatalf("expected 20ms run duration, got %v", tr.Metadata.DurationMs)
	}
}

func TestInterceptor_AccumulatedStateFlowsForward(t *testing.T) {
	c := NewInterceptor()
	c.GraphStarted(event.Event{CorrelationID: "run", Payload: map[string]any{"query": "q"}, Timestamp: at(0)})
	driveNode(c, "n1", "a", map[string]any{"docs": "d"}, 0, 2)
	driveNode(c, "n2", "b", map[string]any{"query": "rewritten"}, 2, 4)
	c.GraphFinished(event.Event{CorrelationID: "run", Timestamp: at(4)})

	tr := c.Trace()
	wantBefore := map[string]any{"query": "q", "docs": "d"}
	if diff := cmp.Diff(wantBefore, tr.Nodes[1].StateBefore); diff != "" {
		t.Fatalf("second node must see first node's output (-want +got):\n%s", diff)
	}
	d := tr.Nodes[1].StateDiff
	if d == nil {
		t.Fatalf("expected diff for overwritten key")
	}
	if change, ok := d.Changed["query"]; !ok || change.New != "rewritten" {
		t.Fatalf("unexpected diff: %+v", d)
	}
	if tr.Nodes[0].StateDiff == nil || tr.Nodes[0].StateDiff.Added["docs"] != "d" {
		t.Fatalf("first node diff should record added docs: %+v", tr.Nodes[0].StateDiff)
	}
}

func TestInterceptor_NodeFailure(t *testing.T) {
	c := NewInterceptor()
	c.GraphStarted(event.Event{CorrelationID: "run", Payload: map[string]any{"query": "q"}, Timestamp: at(0)})
	driveNode(c, "n1", "a", map[string]any{"docs": "d"}, 0, 3)
	c.NodeStarted(event.Event{CorrelationID: "n2", ParentID: "run", NodeID: "b", Timestamp: at(3)})
	c.NodeFailed(event.Event{CorrelationID: "n2", ParentID: "run", Error: "boom", Timestamp: at(7)})
	c.GraphFailed(event.Event{CorrelationID: "run", Timestamp: at(7)})

	tr := c.Trace()
	if diff := cmp.Diff([]string{"a", "b"}, tr.NodeNames()); diff != "" {
		t.Fatalf("unexpected nodes (-want +got):\n%s", diff)
	}
	failed := tr.Nodes[1]
	if failed.Status != trace.StatusError || failed.Error != "boom" {
		t.Fatalf("unexpected failed node: %+v", failed)
	}
	if failed.StateDiff != nil {
		t.Fatalf("errored node must not carry a diff")
	}
	// The failed node never merges output: after-state equals the
	// accumulated state at failure time.
	want := map[string]any{"query": "q", "docs": "d"}
	if diff := cmp.Diff(want, failed.StateAfter); diff != "" {
		t.Fatalf("unexpected after state (-want +got):\n%s", diff)
	}
	if len(tr.Edges) != 1 || tr.Edges[0].From != "a" || tr.Edges[0].To != "b" {
		t.Fatalf("expected single edge a->b, got %+v", tr.Edges)
	}
	if tr.Successful() || tr.Metadata.ErrorCount != 1 {
		t.Fatalf("unexpected metadata: %+v", tr.Metadata)
	}
}

func TestInterceptor_EngineStepPreferred(t *testing.T) {
	c := NewInterceptor()
	c.GraphStarted(event.Event{CorrelationID: "run", Timestamp: at(0)})
	c.NodeStarted(event.Event{CorrelationID: "n1", ParentID: "run", NodeID: "a", Step: 7, Timestamp: at(0)})
	c.NodeFinished(event.Event{CorrelationID: "n1", ParentID: "run", Timestamp: at(1)})
	// No engine step on the second node: the internal counter has still
	// advanced once, so the fallback yields 2.
	driveNode(c, "n2", "b", nil, 1, 2)
	c.GraphFinished(event.Event{CorrelationID: "run", Timestamp: at(2)})

	tr := c.Trace()
	if tr.Nodes[0].Step != 7 {
		t.Fatalf("expected engine step 7, got %d", tr.Nodes[0].Step)
	}
	if tr.Nodes[1].Step != 2 {
		t.Fatalf("expected fallback step 2, got %d", tr.Nodes[1].Step)
	}
}

func TestInterceptor_UnknownCorrelationIgnored(t *testing.T) {
	c := NewInterceptor()
	c.GraphStarted(event.Event{CorrelationID: "run", Timestamp: at(0)})
	c.NodeFinished(event.Event{CorrelationID: "ghost", ParentID: "run", Timestamp: at(1)})
	c.NodeFailed(event.Event{CorrelationID: "ghost2", ParentID: "run", Error: "x", Timestamp: at(1)})
	c.GraphFinished(event.Event{CorrelationID: "run", Timestamp: at(2)})

	tr := c.Trace()
	if len(tr.Nodes) != 0 {
		t.Fatalf("unmatched events must not create nodes: %+v", tr.Nodes)
	}
	if c.UnmatchedEvents() != 2 {
		t.Fatalf("expected 2 unmatched events, got %d", c.UnmatchedEvents())
	}
}

func TestInterceptor_FinalizeIsIdempotent(t *testing.T) {
	c := NewInterceptor()
	c.GraphStarted(event.Event{CorrelationID: "run", Timestamp: at(0)})
	driveNode(c, "n1", "a", nil, 0, 1)
	c.GraphFinished(event.Event{CorrelationID: "run", Payload: map[string]any{"out": 1}, Timestamp: at(5)})
	c.GraphFailed(event.Event{CorrelationID: "run", Timestamp: at(60)})

	tr := c.Trace()
	if tr.Metadata.DurationMs != 5 {
		t.Fatalf("second terminal event must not re-finalize: %+v", tr.Metadata)
	}
	if tr.Metadata.Output == nil {
		t.Fatalf("expected output snapshot to survive")
	}
}

func TestInterceptor_NestedSubRunEventsIgnored(t *testing.T) {
	c := NewInterceptor()
	c.GraphStarted(event.Event{CorrelationID: "run", Payload: map[string]any{"q": 1}, Timestamp: at(0)})
	// A nested graph inside a node run emits its own graph-level events
	// with a parent id. Those must not touch this run's metadata.
	c.GraphStarted(event.Event{CorrelationID: "sub", ParentID: "run", Timestamp: at(1)})
	c.GraphFinished(event.Event{CorrelationID: "sub", ParentID: "run", Timestamp: at(2)})

	tr := c.Trace()
	if tr.Metadata.RunID != "run" {
		t.Fatalf("sub-run overwrote run id: %+v", tr.Metadata)
	}
	if !tr.Metadata.FinishedAt.IsZero() {
		t.Fatalf("sub-run must not finalize the outer run: %+v", tr.Metadata)
	}
}
