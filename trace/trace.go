// Package trace defines the data model for one captured graph execution:
// per-node records, observed edge transitions and run-level metadata.
//
// A Trace is built incrementally by exactly one capture.Interceptor during
// one run and must be treated as read-only once the run finishes. Two runs
// never share a Trace.
package trace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/graphtap/graphtap/diff"
)

// Status is the terminal status of one node execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// NodeExecution records one node run inside a graph execution.
type NodeExecution struct {
	NodeName      string         `json:"nodeName"`
	Step          int            `json:"step"`
	Status        Status         `json:"status"`
	StateBefore   map[string]any `json:"stateBefore,omitempty"`
	StateAfter    map[string]any `json:"stateAfter,omitempty"`
	StateDiff     *diff.Result   `json:"stateDiff,omitempty"`
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    time.Time      `json:"finishedAt"`
	DurationMs    float64        `json:"durationMs"`
	Error         string         `json:"error,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// EdgeTransition records an observed hand-off between two consecutively
// completed nodes. It reflects actual execution order, not declared graph
// topology.
type EdgeTransition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`
}

// RunMetadata summarizes the whole execution. TotalNodes and ErrorCount are
// derived by counting node records at finalization time.
type RunMetadata struct {
	RunID      string         `json:"runId,omitempty"`
	GraphName  string         `json:"graphName,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	DurationMs float64        `json:"durationMs"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	TotalNodes int            `json:"totalNodes"`
	ErrorCount int            `json:"errorCount"`
}

// Trace owns the ordered node and edge records for one graph run.
type Trace struct {
	Metadata RunMetadata      `json:"metadata"`
	Nodes    []NodeExecution  `json:"nodes"`
	Edges    []EdgeTransition `json:"edges"`
}

// New returns an empty trace ready to be filled by an interceptor.
func New() *Trace {
	return &Trace{
		Nodes: []NodeExecution{},
		Edges: []EdgeTransition{},
	}
}

// NodeNames returns the visited node names in execution order.
func (t *Trace) NodeNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		out = append(out, n.NodeName)
	}
	return out
}

// Successful reports whether every node completed without error.
func (t *Trace) Successful() bool {
	if t == nil {
		return false
	}
	for _, n := range t.Nodes {
		if n.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// Node returns the first execution of the named node, or nil. Node names
// are not unique: cyclic or conditional graphs may revisit a node.
func (t *Trace) Node(name string) *NodeExecution {
	if t == nil {
		return nil
	}
	for i := range t.Nodes {
		if t.Nodes[i].NodeName == name {
			return &t.Nodes[i]
		}
	}
	return nil
}

// Clone returns an independent copy. Node and edge slices and the top level
// of every state map are copied; leaf values are shared, matching the
// treat-outputs-as-immutable convention of package capture.
func (t *Trace) Clone() *Trace {
	if t == nil {
		return nil
	}
	out := &Trace{
		Metadata: t.Metadata,
		Nodes:    make([]NodeExecution, len(t.Nodes)),
		Edges:    make([]EdgeTransition, len(t.Edges)),
	}
	out.Metadata.Input = copyState(t.Metadata.Input)
	out.Metadata.Output = copyState(t.Metadata.Output)
	copy(out.Edges, t.Edges)
	for i, n := range t.Nodes {
		n.StateBefore = copyState(n.StateBefore)
		n.StateAfter = copyState(n.StateAfter)
		n.Metadata = copyState(n.Metadata)
		out.Nodes[i] = n
	}
	return out
}

func copyState(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MarshalIndent serializes the trace as indented JSON.
func (t *Trace) MarshalIndent() ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("trace is nil")
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode trace: %w", err)
	}
	return data, nil
}

// Parse decodes a trace previously produced by MarshalIndent or the JSON
// reporter.
func Parse(data []byte) (*Trace, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("trace payload is empty")
	}
	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}
	if t.Nodes == nil {
		t.Nodes = []NodeExecution{}
	}
	if t.Edges == nil {
		t.Edges = []EdgeTransition{}
	}
	return &t, nil
}
