// Package expect provides behavioral assertions over finished traces,
// intended for use from test code. Every check returns a descriptive
// error carrying the actual visited nodes or values, so a violation can
// be diagnosed without re-running the graph.
package expect

import (
	"fmt"

	"github.com/graphtap/graphtap/trace"
)

// NodeVisited fails unless the named node appears in the trace.
func NodeVisited(t *trace.Trace, name string) error {
	visited := t.NodeNames()
	for _, n := range visited {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("node %q was not visited; visited nodes: %v", name, visited)
}

// NodeNotVisited fails if the named node appears in the trace.
func NodeNotVisited(t *trace.Trace, name string) error {
	visited := t.NodeNames()
	for _, n := range visited {
		if n == name {
			return fmt.Errorf("node %q was visited but should not have been; visited nodes: %v", name, visited)
		}
	}
	return nil
}

// VisitedBefore fails unless the first visit of a precedes the first visit
// of b. A node is never before itself, so VisitedBefore(t, x, x) always
// fails.
func VisitedBefore(t *trace.Trace, a, b string) error {
	visited := t.NodeNames()
	idxA, idxB := -1, -1
	for i, n := range visited {
		if idxA < 0 && n == a {
			idxA = i
		}
		if idxB < 0 && n == b {
			idxB = i
		}
	}
	if idxA < 0 {
		return fmt.Errorf("node %q was not visited; visited nodes: %v", a, visited)
	}
	if idxB < 0 {
		return fmt.Errorf("node %q was not visited; visited nodes: %v", b, visited)
	}
	if idxA >= idxB {
		return fmt.Errorf("node %q (position %d) was not visited before %q (position %d); execution order: %v",
			a, idxA, b, idxB, visited)
	}
	return nil
}

// EdgeTaken fails unless the trace recorded a transition from one node to
// another.
func EdgeTaken(t *trace.Trace, from, to string) error {
	taken := make([]string, 0, len(t.Edges))
	for _, e := range t.Edges {
		if e.From == from && e.To == to {
			return nil
		}
		taken = append(taken, fmt.Sprintf("%s -> %s", e.From, e.To))
	}
	return fmt.Errorf("edge %q -> %q was not taken; edges taken: %v", from, to, taken)
}

// NoErrors fails if any node in the trace ended in error.
func NoErrors(t *trace.Trace) error {
	var errored []string
	for _, n := range t.Nodes {
		if n.Status == trace.StatusError {
			errored = append(errored, n.NodeName)
		}
	}
	if len(errored) > 0 {
		return fmt.Errorf("expected no errors, but %d node(s) failed: %v", len(errored), errored)
	}
	return nil
}

// TotalNodes fails unless the visited-node count is within [min, max].
// A negative bound is ignored.
func TotalNodes(t *trace.Trace, min, max int) error {
	visited := t.NodeNames()
	count := len(visited)
	if min >= 0 && count < min {
		return fmt.Errorf("expected at least %d nodes visited, got %d; visited nodes: %v", min, count, visited)
	}
	if max >= 0 && count > max {
		return fmt.Errorf("expected at most %d nodes visited, got %d; visited nodes: %v", max, count, visited)
	}
	return nil
}

// StateAt applies a predicate to the post-state of the first execution of
// the named node. The predicate returns false (or an error) to fail.
func StateAt(t *trace.Trace, name string, predicate func(state map[string]any) (bool, error)) error {
	node := t.Node(name)
	if node == nil {
		return fmt.Errorf("node %q was not visited; visited nodes: %v", name, t.NodeNames())
	}
	ok, err := predicate(node.StateAfter)
	if err != nil {
		return fmt.Errorf("state predicate for node %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("state predicate failed for node %q; state: %v", name, node.StateAfter)
	}
	return nil
}

// MaxDuration fails if the first execution of the named node took longer
// than ms milliseconds.
func MaxDuration(t *trace.Trace, name string, ms float64) error {
	node := t.Node(name)
	if node == nil {
		return fmt.Errorf("node %q was not visited; visited nodes: %v", name, t.NodeNames())
	}
	if node.DurationMs > ms {
		return fmt.Errorf("node %q took %.1fms, exceeding limit of %.1fms", name, node.DurationMs, ms)
	}
	return nil
}
