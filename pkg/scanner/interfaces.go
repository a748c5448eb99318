package scanner

import (
	"context"

	"imgaudit/pkg/catalog"
	"imgaudit/pkg/verifier"
)

// BatchFetcher reads rows in ascending id order
type BatchFetcher interface {
	Fetch(ctx context.Context, startID int64, limit int) ([]catalog.Row, error)
	MaxID(ctx context.Context) (int64, error)
}

// Verifier classifies one image URL
type Verifier interface {
	Verify(ctx context.Context, url string) verifier.Outcome
}

// ResultSink records corrupted images
type ResultSink interface {
	AppendURLs(ctx context.Context, urls []string) error
	AppendIDs(ctx context.Context, ids []string) error
}
