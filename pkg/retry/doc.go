// Package retry provides bounded retry loops for transient failures such as
// database queries and image fetches.
//
// Features:
//   - Constant and exponential backoff strategies
//   - Context support for cancellation between attempts
//   - Configurable retry predicates
//   - Errors instead of panics: exhaustion returns an error wrapping ErrExhausted
//
// Basic usage:
//
//	// Five attempts, three seconds apart
//	rows, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]Row, error) {
//		return querier.QueryRows(ctx, startID, limit)
//	}, retry.Fixed(5, 3*time.Second, log))
//
//	// Three immediate attempts
//	err := retry.Do(ctx, attempt, retry.Fixed(3, 0, log))
package retry
