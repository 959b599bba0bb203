package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/proposal-extractor/internal/core/async"
	"github.com/joseph-ayodele/proposal-extractor/internal/ingest"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch directories and extract documents as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dirs, _ := cmd.Flags().GetStringSlice("dir")
		initial, _ := cmd.Flags().GetBool("initial-scan")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		if len(dirs) == 0 {
			return fmt.Errorf("--dir is required")
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       dirs,
			InitialScan: initial,
			Debounce:    debounce,
			SkipHidden:  true,
		}, logger)
		if err != nil {
			return err
		}

		q := async.NewProcessorQueue(a.processor, logger,
			async.WithWorkers(cfg.Batch.Workers),
			async.WithQueueSize(cfg.Batch.QueueSize),
			async.WithProcessTimeout(cfg.Batch.ProcessTimeout),
			async.WithRatePerMinute(cfg.Batch.RatePerMinute),
		)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Batch.ProcessTimeout)
			defer cancel()
			q.Shutdown(sctx)
		}()

		logger.Info("watch.start", "roots", dirs)
		for {
			select {
			case p, ok := <-events:
				if !ok {
					return nil
				}
				if err := q.Enqueue(ctx, async.Job{Source: p}); err != nil {
					logger.Warn("watch.enqueue_failed", "source", p, "error", err)
				}
			case err, ok := <-errs:
				if ok {
					logger.Warn("watch.error", "error", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringSlice("dir", nil, "directory to watch (repeatable)")
	watchCmd.Flags().Bool("initial-scan", false, "also extract documents already present")
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "coalesce bursts of file events")

	rootCmd.AddCommand(watchCmd)
}
