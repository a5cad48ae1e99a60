package report

import (
	"fmt"
	"os"

	"github.com/graphtap/graphtap/trace"
)

// JSON serializes the full trace (metadata, nodes, edges) as indented JSON.
// When path is non-empty the document is also written to disk.
func JSON(t *trace.Trace, path string) (string, error) {
	if t == nil {
		t = trace.New()
	}
	data, err := t.MarshalIndent()
	if err != nil {
		return "", err
	}
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write trace json: %w", err)
		}
	}
	return string(data), nil
}
