package catalog

import (
	"context"
	"time"

	"imgaudit/pkg/config"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
	"imgaudit/pkg/retry"
)

// Fetcher retrieves batches through a Querier, retrying transient failures
type Fetcher struct {
	querier  Querier
	attempts int
	delay    time.Duration
	logger   logger.Logger
}

// NewFetcher creates a Fetcher using the retry policy from cfg
func NewFetcher(q Querier, cfg config.ScanConfig, log logger.Logger) *Fetcher {
	attempts := cfg.FetchAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &Fetcher{
		querier:  q,
		attempts: attempts,
		delay:    cfg.FetchDelay,
		logger:   logger.OrNop(log),
	}
}

func (f *Fetcher) retryConfig(operation string) *retry.Config {
	cfg := retry.Fixed(f.attempts, f.delay, f.logger)
	cfg.Operation = operation
	return cfg
}

// Fetch returns up to limit rows with id >= startID in ascending id order.
// An empty slice means nothing remains at or after startID.
func (f *Fetcher) Fetch(ctx context.Context, startID int64, limit int) ([]Row, error) {
	rows, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]Row, error) {
		return f.querier.QueryRows(ctx, startID, limit)
	}, f.retryConfig("fetch_batch"))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errs.New(errs.ErrorTypeDatabase, "failed to fetch batch", err)
	}
	return rows, nil
}

// MaxID returns the largest id in the table, or 0 when it is empty
func (f *Fetcher) MaxID(ctx context.Context) (int64, error) {
	maxID, err := retry.DoWithResult(ctx, f.querier.QueryMaxID, f.retryConfig("max_id"))
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, errs.New(errs.ErrorTypeDatabase, "failed to compute upper bound", err)
	}
	return maxID, nil
}
