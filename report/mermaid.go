// Package report renders a finished trace.Trace into the supported output
// formats: mermaid diagram, terminal tree, self-contained HTML, JSON and
// JUnit XML. Reporters are pure formatters; a malformed or empty trace
// still yields minimal valid output.
package report

import (
	"fmt"
	"strings"

	"github.com/graphtap/graphtap/trace"
)

// Diagram directions accepted by Mermaid. Anything else falls back to
// top-down.
const (
	DirectionTopDown   = "TD"
	DirectionLeftRight = "LR"
)

var statusStyles = map[trace.Status]string{
	trace.StatusSuccess: "fill:#d4edda,stroke:#28a745,color:#155724",
	trace.StatusError:   "fill:#f8d7da,stroke:#dc3545,color:#721c24",
}

const markerStyle = "fill:#000,stroke:#000,color:#fff"

// Mermaid renders the trace as a mermaid flowchart. Nodes are labeled with
// name and duration, styled by status; synthetic START and END markers
// bracket the visited path.
func Mermaid(t *trace.Trace, direction string) string {
	if t == nil {
		t = trace.New()
	}
	if direction != DirectionTopDown && direction != DirectionLeftRight {
		direction = DirectionTopDown
	}

	lines := []string{"graph " + direction}

	if len(t.Nodes) > 0 {
		lines = append(lines, fmt.Sprintf("    START(( )) --> %s", sanitizeID(t.Nodes[0].NodeName)))
	}
	for _, node := range t.Nodes {
		label := fmt.Sprintf("%s\\n%.1fms", node.NodeName, node.DurationMs)
		lines = append(lines, fmt.Sprintf("    %s[\"%s\"]", sanitizeID(node.NodeName), label))
	}
	if len(t.Nodes) > 0 {
		lines = append(lines, fmt.Sprintf("    %s --> END(( ))", sanitizeID(t.Nodes[len(t.Nodes)-1].NodeName)))
	}
	for _, edge := range t.Edges {
		lines = append(lines, fmt.Sprintf("    %s --> %s", sanitizeID(edge.From), sanitizeID(edge.To)))
	}
	for _, node := range t.Nodes {
		style, ok := statusStyles[node.Status]
		if !ok {
			style = statusStyles[trace.StatusSuccess]
		}
		lines = append(lines, fmt.Sprintf("    style %s %s", sanitizeID(node.NodeName), style))
	}
	lines = append(lines,
		"    style START "+markerStyle,
		"    style END "+markerStyle,
	)

	return strings.Join(lines, "\n")
}

// sanitizeID makes a node name safe for use as a mermaid identifier.
func sanitizeID(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, "-", "_")
}
