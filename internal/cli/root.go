// Package cli implements the graphtap command line tool: rendering
// archived or exported traces into the supported report formats and
// browsing the trace archive.
package cli

import (
	"context"
	"strings"
)

func Run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		printUsage()
		return 0
	}

	switch strings.TrimSpace(args[0]) {
	case "render":
		return renderCommand(ctx, args[1:])
	case "runs":
		return runsCommand(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		printUsage()
		return 2
	}
}
