package verifypool

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"imgaudit/pkg/catalog"
	"imgaudit/pkg/logger"
	"imgaudit/pkg/verifier"
)

// Job is one row to verify
type Job struct {
	Row catalog.Row
	URL string
}

// Result is the verdict for a job
type Result struct {
	Job      Job
	Outcome  verifier.Outcome
	Duration time.Duration
}

// Verifier checks a single image URL
type Verifier interface {
	Verify(ctx context.Context, url string) verifier.Outcome
}

// Pool verifies the rows of a batch with a bounded number of workers
type Pool struct {
	numWorkers int
	verifier   Verifier
	logger     logger.Logger
}

// New creates a verification pool. numWorkers below 1 means sequential.
func New(numWorkers int, v Verifier, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		verifier:   v,
		logger:     logger.OrNop(log),
	}
}

// Workers returns the concurrency limit
func (p *Pool) Workers() int {
	return p.numWorkers
}

// Run verifies every job and returns the results in ascending row id order,
// whatever order they finished in. If ctx ends first the partial results are
// returned together with ctx's error.
func (p *Pool) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	if p.numWorkers == 1 {
		for i, job := range jobs {
			if err := ctx.Err(); err != nil {
				return results[:i], err
			}
			results[i] = p.process(ctx, job, 0)
		}
		return sortByID(results), ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.numWorkers)

	for i, job := range jobs {
		i, job := i, job
		worker := i % p.numWorkers
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.process(gctx, job, worker)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return sortByID(results), nil
}

// process handles a single verification job
func (p *Pool) process(ctx context.Context, job Job, workerID int) Result {
	start := time.Now()

	outcome := p.verifier.Verify(ctx, job.URL)
	result := Result{
		Job:      job,
		Outcome:  outcome,
		Duration: time.Since(start),
	}

	fields := map[string]interface{}{
		"worker_id": workerID,
		"row_id":    job.Row.ID,
		"ref_id":    job.Row.RefID,
		"attempts":  outcome.Attempts,
		"duration":  result.Duration,
	}
	if outcome.Corrupted {
		fields["reason"] = string(outcome.Reason)
		p.logger.WarnWithFields("Image corrupted", fields)
	} else {
		p.logger.DebugWithFields("Image verified", fields)
	}

	return result
}

func sortByID(results []Result) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Job.Row.ID < results[j].Job.Row.ID
	})
	return results
}
