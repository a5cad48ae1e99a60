package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/graphtap/graphtap/store"
	"github.com/graphtap/graphtap/store/sqlite"
)

func runsCommand(ctx context.Context, args []string) int {
	opts, _ := parseArgs(args)
	cfg := loadConfig(opts.configPath)

	dbPath := opts.db
	if dbPath == "" {
		dbPath = cfg.ArchivePath
	}
	s, err := sqlite.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runs: %v\n", err)
		return 1
	}
	defer closeStore(s)

	limit := opts.limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.ListRuns(ctx, store.ListQuery{Limit: limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "runs: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return 0
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tGRAPH\tSTARTED\tDURATION (MS)\tNODES\tERRORS")
	for _, r := range runs {
		started := ""
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%d\t%d\n",
			r.RunID, r.GraphName, started, r.DurationMs, r.TotalNodes, r.ErrorCount)
	}
	_ = tw.Flush()
	return 0
}

func closeStore(s *sqlite.Store) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		log.Printf("trace archive close failed: %v", err)
	}
}
