// Package capture turns the lifecycle event stream of one graph run into a
// coherent trace.Trace.
package capture

import (
	"time"

	"github.com/graphtap/graphtap/diff"
	"github.com/graphtap/graphtap/event"
	"github.com/graphtap/graphtap/trace"
)

// inflightNode is the correlation table entry created at node start and
// consumed by the matching finish or failure event.
type inflightNode struct {
	nodeID      string
	startedAt   time.Time
	stateBefore map[string]any
	metadata    map[string]any
	step        int
}

// Interceptor builds a trace from the lifecycle events of exactly one graph
// run. It is not safe for use across runs: create a fresh instance per
// invocation.
//
// Node finish and failure events do not repeat the node identifier, so the
// interceptor keeps a bounded-lifetime table from correlation id to the
// in-flight node context recorded at start; entries are deleted as soon as
// the matching finish or failure is processed.
//
// Sequence numbering prefers the engine-declared step when the start event
// carried one, and otherwise falls back to a run-scoped monotonic counter.
// The counter advances on every completion either way so the fallback stays
// monotonic.
//
// Events for one run are assumed to arrive sequentially; concurrent node
// execution within a run is not supported.
type Interceptor struct {
	tr          *trace.Trace
	accumulated map[string]any
	inflight    map[string]inflightNode
	runID       string
	lastNode    string
	hasLastNode bool
	step        int
	finalized   bool
	unmatched   int
}

// NewInterceptor returns an interceptor scoped to one run.
func NewInterceptor() *Interceptor {
	return &Interceptor{
		tr:          trace.New(),
		accumulated: map[string]any{},
		inflight:    map[string]inflightNode{},
	}
}

// Trace returns the trace built so far. After the run's graph-level finish
// or failure event the trace is final; during a run it holds every node
// completed up to this point.
func (c *Interceptor) Trace() *trace.Trace {
	if c == nil {
		return nil
	}
	return c.tr
}

// UnmatchedEvents reports how many node finish/failure events arrived with
// a correlation id that was never seen at start. Such events are dropped as
// a data-quality signal rather than treated as fatal.
func (c *Interceptor) UnmatchedEvents() int {
	if c == nil {
		return 0
	}
	return c.unmatched
}

// GraphStarted seeds the run metadata and the accumulated state from the
// run input. Graph events carrying a parent id belong to a nested sub-run
// and are ignored.
func (c *Interceptor) GraphStarted(e event.Event) {
	if c == nil || e.ParentID != "" || e.NodeID != "" {
		return
	}
	e.Normalize()
	c.runID = e.CorrelationID
	c.tr.Metadata.RunID = e.CorrelationID
	c.tr.Metadata.StartedAt = e.Timestamp
	if name, ok := e.Metadata["graphName"].(string); ok {
		c.tr.Metadata.GraphName = name
	}
	if e.Payload != nil {
		c.tr.Metadata.Input = cloneState(e.Payload)
		c.accumulated = cloneState(e.Payload)
	}
}

// NodeStarted snapshots the accumulated state as the node's before-state
// and remembers the correlation id so the finish event can be matched.
func (c *Interceptor) NodeStarted(e event.Event) {
	if c == nil || e.NodeID == "" {
		return
	}
	e.Normalize()
	c.inflight[e.CorrelationID] = inflightNode{
		nodeID:      e.NodeID,
		startedAt:   e.Timestamp,
		stateBefore: cloneState(c.accumulated),
		metadata:    e.Metadata,
		step:        e.Step,
	}
}

// NodeFinished merges the node output into the accumulated state, diffs
// before/after and appends a success record plus the edge from the
// previously completed node.
func (c *Interceptor) NodeFinished(e event.Event) {
	if c == nil {
		return
	}
	e.Normalize()
	node, ok := c.inflight[e.CorrelationID]
	if !ok {
		c.unmatched++
		return
	}
	delete(c.inflight, e.CorrelationID)

	for k, v := range e.Payload {
		c.accumulated[k] = v
	}
	stateAfter := cloneState(c.accumulated)

	c.appendNode(trace.NodeExecution{
		NodeName:      node.nodeID,
		Status:        trace.StatusSuccess,
		StateBefore:   node.stateBefore,
		StateAfter:    stateAfter,
		StateDiff:     diff.Compute(node.stateBefore, stateAfter),
		StartedAt:     node.startedAt,
		FinishedAt:    e.Timestamp,
		CorrelationID: e.CorrelationID,
		Metadata:      node.metadata,
	}, node.step, e.Timestamp)
}

// NodeFailed records an error execution. The node's output, if any, is
// never merged: errors do not contribute state, and no diff is computed.
func (c *Interceptor) NodeFailed(e event.Event) {
	if c == nil {
		return
	}
	e.Normalize()
	node, ok := c.inflight[e.CorrelationID]
	if !ok {
		c.unmatched++
		return
	}
	delete(c.inflight, e.CorrelationID)

	c.appendNode(trace.NodeExecution{
		NodeName:      node.nodeID,
		Status:        trace.StatusError,
		StateBefore:   node.stateBefore,
		StateAfter:    cloneState(c.accumulated),
		StartedAt:     node.startedAt,
		FinishedAt:    e.Timestamp,
		Error:         e.Error,
		CorrelationID: e.CorrelationID,
		Metadata:      node.metadata,
	}, node.step, e.Timestamp)
}

// GraphFinished finalizes the run metadata with the run output.
func (c *Interceptor) GraphFinished(e event.Event) {
	if c == nil || e.ParentID != "" {
		return
	}
	e.Normalize()
	c.finalize(e.Timestamp, e.Payload)
}

// GraphFailed finalizes whatever trace data was captured before the failure
// surfaced. The failure itself propagates through the engine, never here.
func (c *Interceptor) GraphFailed(e event.Event) {
	if c == nil || e.ParentID != "" {
		return
	}
	e.Normalize()
	c.finalize(e.Timestamp, nil)
}

func (c *Interceptor) appendNode(n trace.NodeExecution, engineStep int, finishedAt time.Time) {
	c.step++
	n.Step = engineStep
	if n.Step <= 0 {
		n.Step = c.step
	}
	if d := n.FinishedAt.Sub(n.StartedAt); d > 0 {
		n.DurationMs = float64(d) / float64(time.Millisecond)
	}
	c.tr.Nodes = append(c.tr.Nodes, n)

	if c.hasLastNode {
		c.tr.Edges = append(c.tr.Edges, trace.EdgeTransition{
			From:      c.lastNode,
			To:        n.NodeName,
			Step:      n.Step,
			Timestamp: finishedAt,
		})
	}
	c.lastNode = n.NodeName
	c.hasLastNode = true
}

// finalize runs exactly once per invocation, on whichever event terminates
// the run.
func (c *Interceptor) finalize(at time.Time, output map[string]any) {
	if c.finalized {
		return
	}
	c.finalized = true

	c.tr.Metadata.FinishedAt = at
	if d := at.Sub(c.tr.Metadata.StartedAt); d > 0 && !c.tr.Metadata.StartedAt.IsZero() {
		c.tr.Metadata.DurationMs = float64(d) / float64(time.Millisecond)
	}
	if output != nil {
		c.tr.Metadata.Output = cloneState(output)
	}
	c.tr.Metadata.TotalNodes = len(c.tr.Nodes)
	errs := 0
	for _, n := range c.tr.Nodes {
		if n.Status == trace.StatusError {
			errs++
		}
	}
	c.tr.Metadata.ErrorCount = errs
}

// cloneState copies the top level of a state map. Values are shared: node
// outputs are treated as immutable once emitted.
func cloneState(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ event.Listener = (*Interceptor)(nil)
