package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/proposal-extractor/internal/core/async"
	"github.com/joseph-ayodele/proposal-extractor/internal/export"
	"github.com/joseph-ayodele/proposal-extractor/internal/ingest"
)

var batchCmd = &cobra.Command{
	Use:   "batch [sources...]",
	Short: "Extract many proposals concurrently and write an XLSX summary",
	Long: `Batch runs every source given as an argument, plus every supported
document found under --dir, through a bounded worker pool. Per-document
failures are reported in the workbook and do not stop the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir, _ := cmd.Flags().GetString("dir")
		outPath, _ := cmd.Flags().GetString("out")
		skipHidden, _ := cmd.Flags().GetBool("skip-hidden")
		if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
			cfg.Batch.Workers = workers
		}

		sources := append([]string(nil), args...)
		if dir != "" {
			paths, stats, err := ingest.ScanDirectory(dir, skipHidden)
			if err != nil {
				return err
			}
			logger.Info("batch.scan", "root", dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
			sources = append(sources, paths...)
		}
		if len(sources) == 0 {
			return fmt.Errorf("nothing to do: pass sources or --dir")
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		results := make(chan async.JobResult, len(sources))
		q := async.NewProcessorQueue(a.processor, logger,
			async.WithWorkers(cfg.Batch.Workers),
			async.WithQueueSize(cfg.Batch.QueueSize),
			async.WithProcessTimeout(cfg.Batch.ProcessTimeout),
			async.WithRatePerMinute(cfg.Batch.RatePerMinute),
			async.WithResults(results),
		)
		skipped := enqueueAll(ctx, q, sources, logger)
		// workers are bounded by the process timeout; wait for all of them
		// before closing results
		q.Shutdown(context.Background())
		close(results)

		rows, failed := collectRows(results, skipped)

		b, err := export.WriteResultsXLSX(rows)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, b, 0o644); err != nil {
			return err
		}
		logger.Info("batch.done", "documents", len(rows), "failed", failed, "out", outPath)
		fmt.Fprintf(cmd.OutOrStdout(), "%d documents, %d failed, wrote %s\n", len(rows), failed, outPath)
		return nil
	},
}

type enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// enqueueAll submits sources in order. Once an enqueue fails the rest are
// not attempted; all of them come back as FAILED rows carrying that error.
func enqueueAll(ctx context.Context, q enqueuer, sources []string, log *slog.Logger) []export.Row {
	for i, src := range sources {
		err := q.Enqueue(ctx, async.Job{Source: src})
		if err == nil {
			continue
		}
		log.Warn("batch.enqueue_failed", "source", src, "remaining", len(sources)-i, "error", err)
		rows := make([]export.Row, 0, len(sources)-i)
		for _, rest := range sources[i:] {
			rows = append(rows, export.Row{Source: rest, Status: "FAILED", Error: err.Error()})
		}
		return rows
	}
	return nil
}

// collectRows drains results into workbook rows and appends the sources
// that never reached a worker.
func collectRows(results <-chan async.JobResult, skipped []export.Row) ([]export.Row, int) {
	var rows []export.Row
	failed := 0
	for r := range results {
		row := export.Row{Source: r.Job.Source, Status: "SUCCEEDED"}
		if r.Job.RunID != uuid.Nil {
			row.RunID = r.Job.RunID.String()
		}
		if r.Err != nil {
			failed++
			row.Status, row.Error = "FAILED", r.Err.Error()
		} else if r.Report != nil && r.Report.Outcome != nil {
			row.Result = r.Report.Outcome.Result
		}
		rows = append(rows, row)
	}
	return append(rows, skipped...), failed + len(skipped)
}

func init() {
	batchCmd.Flags().String("dir", "", "directory to scan recursively for documents")
	batchCmd.Flags().String("out", "proposals.xlsx", "XLSX summary path")
	batchCmd.Flags().Int("workers", 0, "worker count (overrides batch.workers)")
	batchCmd.Flags().Bool("skip-hidden", true, "skip dot files and directories")

	rootCmd.AddCommand(batchCmd)
}
