package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/graphtap/graphtap/report"
	"github.com/graphtap/graphtap/runtimeconfig"
	"github.com/graphtap/graphtap/store/sqlite"
	"github.com/graphtap/graphtap/trace"
)

func renderCommand(ctx context.Context, args []string) int {
	opts, _ := parseArgs(args)
	cfg := loadConfig(opts.configPath)

	if opts.trace == "" && opts.runID == "" {
		fmt.Fprintln(os.Stderr, "render: either --trace or --run is required")
		return 2
	}

	t, err := loadTrace(ctx, opts, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		return 1
	}

	format := opts.format
	if format == "" {
		format = "terminal"
	}
	direction := opts.direction
	if direction == "" {
		direction = cfg.Direction
	}
	detailed := opts.detailed || cfg.Detailed

	switch format {
	case "terminal":
		report.Terminal(os.Stdout, t, detailed)
		return 0
	case "mermaid":
		return emit(report.Mermaid(t, direction)+"\n", opts.out)
	case "html":
		out, err := report.HTML(t, opts.out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "render: %v\n", err)
			return 1
		}
		if opts.out == "" {
			fmt.Print(out)
		}
		return 0
	case "json":
		out, err := report.JSON(t, opts.out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "render: %v\n", err)
			return 1
		}
		if opts.out == "" {
			fmt.Println(out)
		}
		return 0
	case "junit":
		out, err := report.JUnit(t, opts.out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "render: %v\n", err)
			return 1
		}
		if opts.out == "" {
			fmt.Println(out)
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "render: unknown format %q\n", format)
		return 2
	}
}

func loadTrace(ctx context.Context, opts cliOptions, cfg runtimeconfig.Config) (*trace.Trace, error) {
	if opts.trace != "" {
		data, err := os.ReadFile(opts.trace)
		if err != nil {
			return nil, fmt.Errorf("failed to read trace file: %w", err)
		}
		return trace.Parse(data)
	}

	dbPath := opts.db
	if dbPath == "" {
		dbPath = cfg.ArchivePath
	}
	s, err := sqlite.New(dbPath)
	if err != nil {
		return nil, err
	}
	defer closeStore(s)
	return s.LoadTrace(ctx, opts.runID)
}

func emit(out, path string) int {
	if path == "" {
		fmt.Print(out)
		return 0
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "render: failed to write %s: %v\n", path, err)
		return 1
	}
	return 0
}

func loadConfig(path string) runtimeconfig.Config {
	if path == "" {
		return runtimeconfig.Default()
	}
	cfg, err := runtimeconfig.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return runtimeconfig.Default()
	}
	return cfg
}
