package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/graphtap/graphtap/trace"
)

// Terminal writes a tree-style run report. Detailed mode adds per-node
// state diffs inline and a timing table after the tree.
func Terminal(w io.Writer, t *trace.Trace, detailed bool) {
	if w == nil {
		return
	}
	if t == nil {
		t = trace.New()
	}

	status := "SUCCESS"
	if !t.Successful() {
		status = "FAILED"
	}

	fmt.Fprintln(w, "graphtap")
	for i, node := range t.Nodes {
		glyph := "OK"
		if node.Status == trace.StatusError {
			glyph = "ERR"
		}
		branch := "├─"
		if i == len(t.Nodes)-1 {
			branch = "└─"
		}
		fmt.Fprintf(w, "%s %s Step %d: %s (%.1fms)\n", branch, glyph, node.Step, node.NodeName, node.DurationMs)

		indent := "│ "
		if i == len(t.Nodes)-1 {
			indent = "  "
		}
		if detailed && node.StateDiff != nil {
			if encoded, err := json.Marshal(node.StateDiff); err == nil {
				fmt.Fprintf(w, "%s   diff: %s\n", indent, encoded)
			}
		}
		if node.Error != "" {
			fmt.Fprintf(w, "%s   error: %s\n", indent, node.Error)
		}
	}
	fmt.Fprintf(w, "%s | %d nodes | %.1fms\n", status, t.Metadata.TotalNodes, t.Metadata.DurationMs)

	if detailed {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Node Timing")
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STEP\tNODE\tDURATION (MS)\tSTATUS")
		for _, node := range t.Nodes {
			glyph := "OK"
			if node.Status == trace.StatusError {
				glyph = "ERR"
			}
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\n", node.Step, node.NodeName, node.DurationMs, glyph)
		}
		_ = tw.Flush()
	}
}
