package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/graphtap/graphtap/trace"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>graphtap Report</title>
<style>
  :root {
    --bg: #0d1117; --surface: #161b22; --border: #30363d;
    --text: #e6edf3; --text-dim: #8b949e; --accent: #58a6ff;
    --green: #3fb950; --red: #f85149;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
    background: var(--bg); color: var(--text); padding: 24px; line-height: 1.6; }
  .container { max-width: 960px; margin: 0 auto; }
  h1 { font-size: 24px; margin-bottom: 8px; }
  .subtitle { color: var(--text-dim); margin-bottom: 24px; }
  .stats { display: flex; gap: 16px; margin-bottom: 24px; flex-wrap: wrap; }
  .stat { background: var(--surface); border: 1px solid var(--border);
    border-radius: 8px; padding: 16px 20px; min-width: 140px; }
  .stat-value { font-size: 28px; font-weight: 700; }
  .stat-label { color: var(--text-dim); font-size: 13px; }
  .stat-value.success { color: var(--green); }
  .stat-value.error { color: var(--red); }
  .mermaid-section { background: var(--surface); border: 1px solid var(--border);
    border-radius: 8px; padding: 20px; margin-bottom: 24px; }
  .mermaid-section h2 { margin-bottom: 12px; font-size: 16px; }
  .mermaid { background: #fff; border-radius: 6px; padding: 16px; text-align: center; }
  .nodes-section h2 { font-size: 16px; margin-bottom: 12px; }
  .node-card { background: var(--surface); border: 1px solid var(--border);
    border-radius: 8px; margin-bottom: 8px; overflow: hidden; }
  .node-header { display: flex; align-items: center; padding: 12px 16px;
    cursor: pointer; gap: 10px; user-select: none; }
  .node-header:hover { background: rgba(255,255,255,0.03); }
  .node-icon { width: 8px; height: 8px; border-radius: 50%; flex-shrink: 0; }
  .node-icon.success { background: var(--green); }
  .node-icon.error { background: var(--red); }
  .node-name { font-weight: 600; flex: 1; }
  .node-step, .node-duration { color: var(--text-dim); font-size: 13px; }
  .node-chevron { color: var(--text-dim); transition: transform 0.2s; }
  .node-card.open .node-chevron { transform: rotate(90deg); }
  .node-body { display: none; padding: 0 16px 16px; border-top: 1px solid var(--border); }
  .node-card.open .node-body { display: block; padding-top: 12px; }
  .detail-label { color: var(--text-dim); font-size: 12px; text-transform: uppercase;
    letter-spacing: 0.5px; margin-bottom: 4px; margin-top: 12px; }
  .detail-label:first-child { margin-top: 0; }
  pre { background: var(--bg); border: 1px solid var(--border); border-radius: 6px;
    padding: 12px; font-size: 13px; overflow-x: auto;
    white-space: pre-wrap; word-break: break-word; }
  .error-text { color: var(--red); }
  .footer { text-align: center; color: var(--text-dim); font-size: 12px;
    margin-top: 32px; padding-top: 16px; border-top: 1px solid var(--border); }
</style>
</head>
<body>
<div class="container">
  <h1>graphtap Report</h1>
  <p class="subtitle">{{.StatusText}}</p>

  <div class="stats">
    <div class="stat">
      <div class="stat-value {{.StatusClass}}">{{.StatusLabel}}</div>
      <div class="stat-label">Status</div>
    </div>
    <div class="stat">
      <div class="stat-value">{{.NodeCount}}</div>
      <div class="stat-label">Nodes Visited</div>
    </div>
    <div class="stat">
      <div class="stat-value">{{.TotalDuration}}</div>
      <div class="stat-label">Total Duration</div>
    </div>
    <div class="stat">
      <div class="stat-value {{.StatusClass}}">{{.ErrorCount}}</div>
      <div class="stat-label">Errors</div>
    </div>
  </div>

  <div class="mermaid-section">
    <h2>Execution Flow</h2>
    <div class="mermaid">
{{.MermaidCode}}
    </div>
  </div>

  <div class="nodes-section">
    <h2>Node Details</h2>
{{range .Nodes}}    <div class="node-card">
      <div class="node-header">
        <span class="node-icon {{.IconClass}}"></span>
        <span class="node-name">{{.Name}}</span>
        <span class="node-step">Step {{.Step}}</span>
        <span class="node-duration">{{.Duration}}</span>
        <span class="node-chevron">&#9654;</span>
      </div>
      <div class="node-body">
{{if .Error}}        <div class="detail-label">Error</div>
        <pre class="error-text">{{.Error}}</pre>
{{end}}{{if .StateDiff}}        <div class="detail-label">State Diff</div>
        <pre>{{.StateDiff}}</pre>
{{end}}{{if .StateBefore}}        <div class="detail-label">State Before</div>
        <pre>{{.StateBefore}}</pre>
{{end}}{{if .StateAfter}}        <div class="detail-label">State After</div>
        <pre>{{.StateAfter}}</pre>
{{end}}{{if .Empty}}        <p>No details available</p>
{{end}}      </div>
    </div>
{{end}}  </div>

  <div class="footer">Generated by graphtap</div>
</div>

<script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
<script>
mermaid.initialize({ startOnLoad: true, theme: 'default' });
document.querySelectorAll('.node-header').forEach(h => {
  h.addEventListener('click', () => h.parentElement.classList.toggle('open'));
});
</script>
</body>
</html>
`))

type htmlNode struct {
	Name        string
	Step        int
	Duration    string
	IconClass   string
	Error       string
	StateDiff   string
	StateBefore string
	StateAfter  string
	Empty       bool
}

type htmlData struct {
	StatusText    string
	StatusLabel   string
	StatusClass   string
	NodeCount     int
	TotalDuration string
	ErrorCount    int
	MermaidCode   template.HTML
	Nodes         []htmlNode
}

// HTML renders a single self-contained document with the diagram, summary
// statistics and one expandable card per node. When path is non-empty the
// document is also written to disk; it is always returned as a string.
func HTML(t *trace.Trace, path string) (string, error) {
	if t == nil {
		t = trace.New()
	}

	hasErrors := t.Metadata.ErrorCount > 0
	data := htmlData{
		StatusText:    fmt.Sprintf("%d nodes executed in %.1fms", t.Metadata.TotalNodes, t.Metadata.DurationMs),
		StatusLabel:   "SUCCESS",
		StatusClass:   "success",
		NodeCount:     t.Metadata.TotalNodes,
		TotalDuration: fmt.Sprintf("%.1fms", t.Metadata.DurationMs),
		ErrorCount:    t.Metadata.ErrorCount,
		MermaidCode:   template.HTML(Mermaid(t, DirectionTopDown)),
	}
	if hasErrors {
		data.StatusLabel = "FAILED"
		data.StatusClass = "error"
	}

	for _, node := range t.Nodes {
		card := htmlNode{
			Name:        node.NodeName,
			Step:        node.Step,
			Duration:    fmt.Sprintf("%.1fms", node.DurationMs),
			IconClass:   "success",
			Error:       node.Error,
			StateBefore: prettyJSON(node.StateBefore),
			StateAfter:  prettyJSON(node.StateAfter),
		}
		if node.Status == trace.StatusError {
			card.IconClass = "error"
		}
		if node.StateDiff != nil {
			card.StateDiff = prettyJSONValue(node.StateDiff)
		}
		card.Empty = card.Error == "" && card.StateDiff == "" && card.StateBefore == "" && card.StateAfter == ""
		data.Nodes = append(data.Nodes, card)
	}

	var sb strings.Builder
	if err := htmlTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render html report: %w", err)
	}
	out := sb.String()

	if path != "" {
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return "", fmt.Errorf("failed to write html report: %w", err)
		}
	}
	return out, nil
}

func prettyJSON(state map[string]any) string {
	if len(state) == 0 {
		return ""
	}
	return prettyJSONValue(state)
}

func prettyJSONValue(v any) string {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}
