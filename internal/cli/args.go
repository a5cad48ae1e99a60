package cli

import (
	"strconv"
	"strings"
)

type cliOptions struct {
	trace      string
	runID      string
	db         string
	format     string
	out        string
	direction  string
	configPath string
	limit      int
	detailed   bool
}

func parseArgs(args []string) (cliOptions, []string) {
	opts := cliOptions{}
	positional := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--trace="):
			opts.trace = strings.TrimSpace(strings.TrimPrefix(arg, "--trace="))
		case strings.HasPrefix(arg, "--run="):
			opts.runID = strings.TrimSpace(strings.TrimPrefix(arg, "--run="))
		case strings.HasPrefix(arg, "--db="):
			opts.db = strings.TrimSpace(strings.TrimPrefix(arg, "--db="))
		case strings.HasPrefix(arg, "--format="):
			opts.format = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(arg, "--format=")))
		case strings.HasPrefix(arg, "--out="):
			opts.out = strings.TrimSpace(strings.TrimPrefix(arg, "--out="))
		case strings.HasPrefix(arg, "--direction="):
			opts.direction = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(arg, "--direction=")))
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimSpace(strings.TrimPrefix(arg, "--config="))
		case strings.HasPrefix(arg, "--limit="):
			opts.limit = parseInt(strings.TrimPrefix(arg, "--limit="), 0)
		case arg == "--detailed":
			opts.detailed = true
		default:
			positional = append(positional, arg)
		}
	}
	return opts, positional
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
