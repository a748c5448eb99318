// Package scanner runs the resumable audit loop.
//
// A run reads the upper bound (largest id) once, then repeatedly:
//
//  1. fetches up to scan.batch_size rows with id >= cursor
//  2. verifies each image, sequentially or with scan.workers goroutines
//  3. appends corrupted URLs and reference ids to the sink, in id order
//  4. writes the batch's largest id to the checkpoint store
//
// until the cursor reaches the upper bound. Because fetches include the
// cursor row, the row committed last is skipped within a run; after a
// restart it is verified once more.
//
// Example:
//
//	s := scanner.New(cfg, fetcher, store, verifier, sink,
//		scanner.WithLogger(log),
//		scanner.WithMetrics(collector),
//	)
//	res, err := s.Run(ctx)
package scanner
