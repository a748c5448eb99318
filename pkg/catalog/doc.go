// Package catalog reads image references from the relational table being
// audited.
//
// Rows are fetched in ascending id order, in batches, starting at a cursor.
// The Querier interface isolates the SQL; Fetcher adds the retry policy so
// transient database failures do not end a long run:
//
//	db, err := catalog.Open(ctx, cfg.Database, log)
//	q, err := catalog.NewSQLQuerier(db, cfg.Database.Table)
//	fetcher := catalog.NewFetcher(q, cfg.Scan, log)
//	rows, err := fetcher.Fetch(ctx, cursor, cfg.Scan.BatchSize)
//
// Both MySQL (github.com/go-sql-driver/mysql) and SQLite (modernc.org/sqlite)
// are supported. Migrate creates the images table for fixtures and new
// environments.
package catalog
