package cli

import "fmt"

func printUsage() {
	fmt.Println("graphtap CLI")
	fmt.Println("Usage:")
	fmt.Println("  graphtap render --trace=trace.json [--format=terminal] [--out=report.html]")
	fmt.Println("  graphtap render --run=RUN_ID --db=graphtap.db [--format=mermaid]")
	fmt.Println("  graphtap runs [--db=graphtap.db] [--limit=20]")
	fmt.Println()
	fmt.Println("Render Options:")
	fmt.Println("  --trace=PATH        Trace JSON file to render")
	fmt.Println("  --run=RUN_ID        Load the trace from the archive instead")
	fmt.Println("  --db=PATH           Trace archive (default graphtap.db)")
	fmt.Println("  --format=NAME       mermaid | terminal | html | json | junit (default terminal)")
	fmt.Println("  --out=PATH          Write the report to a file instead of stdout")
	fmt.Println("  --direction=TD|LR   Diagram direction (default TD)")
	fmt.Println("  --detailed          Include per-node diffs and the timing table")
	fmt.Println("  --config=PATH       Config file (YAML or JSON)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GRAPHTAP_ARCHIVE_PATH   Trace archive path")
	fmt.Println("  GRAPHTAP_REPORT_DIR     Default report output directory")
	fmt.Println("  GRAPHTAP_DETAILED       Detailed terminal reports (true/false)")
}
