package main

import (
	"context"
	"database/sql"
	"fmt"

	"imgaudit/pkg/auth"
	"imgaudit/pkg/catalog"
	"imgaudit/pkg/checkpoint"
	"imgaudit/pkg/config"
	"imgaudit/pkg/logger"
)

// app holds the connections a command needs. Close releases them.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	db      *sql.DB
	fetcher *catalog.Fetcher
	store   checkpoint.Store
}

// openApp connects to the database and the checkpoint store
func openApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	if err := auth.ResolvePassword(&cfg.Database, auth.NewKeyringStore()); err != nil {
		return nil, err
	}

	store, err := checkpoint.Open(cfg.Checkpoint, log)
	if err != nil {
		return nil, err
	}

	db, err := catalog.Open(ctx, cfg.Database, log)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	q, err := catalog.NewSQLQuerier(db, cfg.Database.Table)
	if err != nil {
		db.Close()
		closeStore(store)
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		fetcher: catalog.NewFetcher(q, cfg.Scan, log),
		store:   store,
	}, nil
}

// Close releases the database handle and the checkpoint store
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
	closeStore(a.store)
}

func closeStore(store checkpoint.Store) {
	if c, ok := store.(interface{ Close() error }); ok {
		c.Close()
	}
}

// describeCheckpoint names where the cursor lives for user-facing output
func describeCheckpoint(cfg config.CheckpointConfig) string {
	if cfg.Backend == "redis" {
		return fmt.Sprintf("redis %s key %s", cfg.RedisAddr, cfg.RedisKey)
	}
	return cfg.File
}
