package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"imgaudit/pkg/metrics"
	"imgaudit/pkg/scanner"
	"imgaudit/pkg/sink"
	"imgaudit/pkg/ui"
	"imgaudit/pkg/verifier"
)

var (
	scanTable             string
	scanBaseURL           string
	scanCheckpointFile    string
	scanWorkers           int
	scanBatchSize         int
	scanRequestsPerMinute int
	scanMetricsAddr       string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Verify every image from the checkpoint to the end of the table",
	Long: `Scan the image table from the saved checkpoint up to its current largest id.

Each image is downloaded and decoded up to three times. Images that never
succeed are appended to the corrupted URL and id files. The checkpoint is
advanced after every batch, so the scan can be stopped with Ctrl+C and
resumed later by running the same command again.`,
	Example: `  # Scan with settings from imgaudit.yaml / .env
  imgaudit scan

  # Four concurrent verifications, at most 120 requests per minute
  imgaudit scan --workers 4 --requests-per-minute 120

  # Expose Prometheus metrics while scanning
  imgaudit scan --metrics-addr :9108`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanTable, "table", "", "image table name")
	scanCmd.Flags().StringVar(&scanBaseURL, "base-url", "", "host prefix for image paths")
	scanCmd.Flags().StringVar(&scanCheckpointFile, "checkpoint-file", "", "checkpoint file path")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "concurrent verifications per batch")
	scanCmd.Flags().IntVarP(&scanBatchSize, "batch-size", "b", 0, "rows per batch")
	scanCmd.Flags().IntVar(&scanRequestsPerMinute, "requests-per-minute", -1, "image request limit (0 = unlimited)")
	scanCmd.Flags().StringVar(&scanMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func scanFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"table":           scanTable,
		"base-url":        scanBaseURL,
		"checkpoint-file": scanCheckpointFile,
		"workers":         scanWorkers,
		"batch-size":      scanBatchSize,
		"metrics-addr":    scanMetricsAddr,
	}
	if scanRequestsPerMinute >= 0 {
		flags["requests-per-minute"] = scanRequestsPerMinute
	}
	return flags
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(scanFlags())
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("Startup failed")
		return err
	}
	defer a.Close()

	resultSink, err := sink.FromConfig(cfg.Output, log)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Addr != "" {
		collector = metrics.NewCollector()
	}

	s := scanner.New(cfg, a.fetcher, a.store, verifier.New(cfg.Verify, log), resultSink,
		scanner.WithLogger(log),
		scanner.WithMetrics(collector),
	)

	ui.PrintInfo("Table", cfg.Database.Table)
	ui.PrintInfo("Checkpoint", describeCheckpoint(cfg.Checkpoint))
	ui.PrintHighlight("Scanning... press Ctrl+C to stop after the current batch")

	var res scanner.Result
	g, gctx := errgroup.WithContext(ctx)
	scanCtx, scanDone := context.WithCancel(gctx)

	if collector != nil {
		srv := metrics.NewServer(cfg.Metrics.Addr, collector, log)
		g.Go(func() error {
			return srv.Run(scanCtx)
		})
	}
	g.Go(func() error {
		defer scanDone()
		var runErr error
		res, runErr = s.Run(scanCtx)
		return runErr
	})
	err = g.Wait()

	printScanResult(res)

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		ui.PrintWarning("Scan interrupted", "run the same command again to resume")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("Scan failed")
		return fmt.Errorf("scan failed: %w", err)
	}

	ui.PrintSuccess("Scan complete")
	return nil
}

func printScanResult(res scanner.Result) {
	ui.PrintInfo("Run", res.RunID)
	ui.PrintInfo("Scanned", fmt.Sprintf("%d rows in %d batches", res.Scanned, res.Batches))
	ui.PrintInfo("Corrupted", fmt.Sprintf("%d", res.Corrupted))
	ui.PrintInfo("Cursor", fmt.Sprintf("%d -> %d of %d %s", res.StartCursor, res.FinalCursor, res.UpperBound,
		ui.CursorProgress(res.FinalCursor, res.UpperBound)))
	ui.PrintInfo("Duration", ui.FormatDuration(res.Duration))
	if res.Stalled {
		ui.PrintWarning("Cursor stopped advancing before the upper bound")
	}
}
