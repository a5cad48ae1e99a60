// Package event defines the lifecycle event protocol emitted by a graph
// engine while it executes, and the listener interface through which
// observers receive those events.
//
// Events arrive in two tiers. Graph-level events carry the run's own
// correlation id and no parent. Node-level events carry a correlation id
// scoped to one node execution plus the run id as parent; only the start
// event of a node repeats the node identifier, so observers must correlate
// the matching finish or failure through the correlation id.
package event

import "time"

// Event is one lifecycle notification from an executing graph.
type Event struct {
	// CorrelationID identifies the event scope: the run for graph-level
	// events, one node execution for node-level events. A node's start,
	// finish and failure share the same id.
	CorrelationID string `json:"correlationId"`
	// ParentID is empty on graph-level events and holds the run's
	// correlation id on node-level events.
	ParentID string `json:"parentId,omitempty"`
	// NodeID is set on node start events only.
	NodeID string `json:"nodeId,omitempty"`
	// Step is the engine-declared step number, 0 when the engine does not
	// number steps.
	Step int `json:"step,omitempty"`
	// Payload carries the run input on graph start, the node output on
	// node finish and the run output on graph finish.
	Payload map[string]any `json:"payload,omitempty"`
	// Error holds the failure message on node or graph failure events.
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Normalize fills defaulted fields in place.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
}

// Listener receives lifecycle events synchronously from the executing
// engine. Implementations must return quickly and must not block.
type Listener interface {
	GraphStarted(e Event)
	GraphFinished(e Event)
	GraphFailed(e Event)
	NodeStarted(e Event)
	NodeFinished(e Event)
	NodeFailed(e Event)
}

// NopListener implements Listener with no-ops, for embedding.
type NopListener struct{}

func (NopListener) GraphStarted(Event)  {}
func (NopListener) GraphFinished(Event) {}
func (NopListener) GraphFailed(Event)   {}
func (NopListener) NodeStarted(Event)   {}
func (NopListener) NodeFinished(Event)  {}
func (NopListener) NodeFailed(Event)    {}

// Listeners fans one event stream out to several listeners in order.
type Listeners []Listener

func (ls Listeners) GraphStarted(e Event) {
	for _, l := range ls {
		if l != nil {
			l.GraphStarted(e)
		}
	}
}

func (ls Listeners) GraphFinished(e Event) {
	for _, l := range ls {
		if l != nil {
			l.GraphFinished(e)
		}
	}
}

func (ls Listeners) GraphFailed(e Event) {
	for _, l := range ls {
		if l != nil {
			l.GraphFailed(e)
		}
	}
}

func (ls Listeners) NodeStarted(e Event) {
	for _, l := range ls {
		if l != nil {
			l.NodeStarted(e)
		}
	}
}

func (ls Listeners) NodeFinished(e Event) {
	for _, l := range ls {
		if l != nil {
			l.NodeFinished(e)
		}
	}
}

func (ls Listeners) NodeFailed(e Event) {
	for _, l := range ls {
		if l != nil {
			l.NodeFailed(e)
		}
	}
}

var _ Listener = Listeners(nil)
var _ Listener = NopListener{}
