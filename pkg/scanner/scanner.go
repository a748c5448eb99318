package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"imgaudit/internal/verifypool"
	"imgaudit/pkg/catalog"
	"imgaudit/pkg/checkpoint"
	"imgaudit/pkg/config"
	"imgaudit/pkg/logger"
	"imgaudit/pkg/metrics"
	"imgaudit/pkg/verifier"
)

// Result summarises a run
type Result struct {
	RunID string
	// Scanned counts verified rows, including a boundary row re-verified
	// after a restart
	Scanned     int
	Corrupted   int
	Batches     int
	StartCursor int64
	FinalCursor int64
	UpperBound  int64
	Duration    time.Duration
	// Stalled is set when the loop stopped because the cursor could not advance
	Stalled bool
}

// Scanner drives the checkpointed scan-and-verify loop
type Scanner struct {
	fetcher   BatchFetcher
	store     checkpoint.Store
	pool      *verifypool.Pool
	sink      ResultSink
	baseURL   string
	batchSize int
	logger    logger.Logger
	metrics   *metrics.Collector
}

// Option configures a Scanner
type Option func(*Scanner)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Scanner) { s.metrics = m }
}

// New creates a Scanner. cfg supplies the batch size, worker count and the
// host prefix for image paths.
func New(cfg *config.Config, fetcher BatchFetcher, store checkpoint.Store, v Verifier, sink ResultSink, opts ...Option) *Scanner {
	s := &Scanner{
		fetcher:   fetcher,
		store:     store,
		sink:      sink,
		baseURL:   cfg.Source.BaseURL,
		batchSize: cfg.Scan.BatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.batchSize <= 0 {
		s.batchSize = 10
	}
	s.logger = logger.OrNop(s.logger)
	s.pool = verifypool.New(cfg.Scan.Workers, v, s.logger)
	return s
}

// Run scans from the persisted cursor up to the table's current maximum id.
//
// Each batch is verified, its corrupted rows appended to the sink, and only
// then is the checkpoint advanced to the batch's largest id. Verification
// failures never end the run; database and sink failures do. If ctx is
// cancelled the batch in progress is discarded and ctx's error returned.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	log := s.logger.WithField("run_id", res.RunID)

	upper, err := s.fetcher.MaxID(ctx)
	if err != nil {
		s.finish(log, &res, start, err)
		return res, fmt.Errorf("compute upper bound: %w", err)
	}
	res.UpperBound = upper
	s.metrics.SetUpperBound(upper)

	cursor := s.store.Read(ctx)
	res.StartCursor = cursor
	res.FinalCursor = cursor
	s.metrics.SetCursor(cursor)

	logger.LogComponentStart(log, "scanner", map[string]interface{}{
		"cursor":      cursor,
		"upper_bound": upper,
		"batch_size":  s.batchSize,
		"workers":     s.pool.Workers(),
	})

	// Id of the last row committed by this run; it reappears at the head of
	// the next batch because fetches include the cursor itself
	lastCommitted := int64(-1)

	for cursor < upper {
		if err := ctx.Err(); err != nil {
			s.finish(log, &res, start, err)
			return res, err
		}

		batchStart := time.Now()
		rows, err := s.fetcher.Fetch(ctx, cursor, s.batchSize)
		if err != nil {
			s.finish(log, &res, start, err)
			return res, fmt.Errorf("fetch batch at %d: %w", cursor, err)
		}
		if len(rows) == 0 {
			log.InfoWithFields("No rows at or after cursor", map[string]interface{}{
				"cursor": cursor,
			})
			break
		}

		maxID := maxRowID(rows)
		if maxID <= cursor {
			log.WarnWithFields("Cursor cannot advance, stopping", map[string]interface{}{
				"cursor": cursor,
				"max_id": maxID,
			})
			res.Stalled = true
			break
		}

		jobs := make([]verifypool.Job, 0, len(rows))
		for _, row := range rows {
			if row.ID == lastCommitted {
				continue
			}
			jobs = append(jobs, verifypool.Job{Row: row, URL: verifier.BuildURL(s.baseURL, row.ImagePath)})
		}

		results, err := s.pool.Run(ctx, jobs)
		if err != nil {
			log.WarnWithFields("Batch interrupted, not committed", map[string]interface{}{
				"cursor": cursor,
				"rows":   len(jobs),
			})
			s.finish(log, &res, start, err)
			return res, err
		}

		// The commit finishes even if a shutdown signal arrives meanwhile
		commitCtx := context.WithoutCancel(ctx)
		corrupted, err := s.commit(commitCtx, results)
		if err != nil {
			s.finish(log, &res, start, err)
			return res, err
		}

		cursor = s.advance(commitCtx, log, cursor, maxID)
		lastCommitted = maxID

		res.Scanned += len(results)
		res.Corrupted += corrupted
		res.Batches++
		res.FinalCursor = cursor

		for _, r := range results {
			s.metrics.ObserveVerification(r.Outcome.Corrupted, r.Duration)
		}
		s.metrics.ObserveBatch(cursor, time.Since(batchStart))
		logger.LogScanProgress(log, cursor, upper, res.Scanned)
	}

	s.finish(log, &res, start, nil)
	return res, nil
}

// commit appends the batch's corrupted rows to the sink in id order
func (s *Scanner) commit(ctx context.Context, results []verifypool.Result) (int, error) {
	var urls, ids []string
	for _, r := range results {
		if r.Outcome.Corrupted {
			urls = append(urls, r.Job.URL)
			ids = append(ids, r.Job.Row.RefID)
		}
	}

	if err := s.sink.AppendURLs(ctx, urls); err != nil {
		return 0, fmt.Errorf("record corrupted urls: %w", err)
	}
	if err := s.sink.AppendIDs(ctx, ids); err != nil {
		return 0, fmt.Errorf("record corrupted ids: %w", err)
	}
	return len(urls), nil
}

// advance persists maxID and returns the cursor for the next fetch
func (s *Scanner) advance(ctx context.Context, log logger.Logger, cursor, maxID int64) int64 {
	if err := s.store.Write(ctx, maxID); err != nil {
		s.metrics.CheckpointWriteFailed()
		log.WithError(err).WithFields(map[string]interface{}{
			"cursor": cursor,
			"max_id": maxID,
		}).Error("Checkpoint write failed, continuing from memory")
		return maxID
	}

	next := s.store.Read(ctx)
	if next < maxID {
		log.WarnWithFields("Checkpoint reads behind last write, ignoring", map[string]interface{}{
			"written": maxID,
			"read":    next,
		})
		return maxID
	}
	return next
}

func (s *Scanner) finish(log logger.Logger, res *Result, start time.Time, err error) {
	res.Duration = time.Since(start)

	outcome := "completed"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome = "interrupted"
	default:
		outcome = "failed"
	}
	s.metrics.RunFinished(outcome)

	logger.LogMetrics(log, "scan", map[string]interface{}{
		"outcome":      outcome,
		"scanned":      res.Scanned,
		"corrupted":    res.Corrupted,
		"batches":      res.Batches,
		"start_cursor": res.StartCursor,
		"final_cursor": res.FinalCursor,
		"upper_bound":  res.UpperBound,
		"duration":     res.Duration.String(),
	})
	logger.LogComponentStop(log, "scanner", outcome)
}

func maxRowID(rows []catalog.Row) int64 {
	maxID := rows[0].ID
	for _, row := range rows[1:] {
		if row.ID > maxID {
			maxID = row.ID
		}
	}
	return maxID
}
