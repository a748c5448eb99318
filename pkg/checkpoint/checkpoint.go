package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"imgaudit/pkg/config"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
)

// DefaultCursor is the cursor used when no valid checkpoint exists
const DefaultCursor int64 = 1

// Store persists the last fully processed row identifier.
//
// Read never fails: a missing or unreadable checkpoint yields DefaultCursor.
type Store interface {
	Read(ctx context.Context) int64
	Write(ctx context.Context, id int64) error
}

// FileStore keeps the cursor as a decimal integer in a plain text file
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore creates a file-backed store. The file need not exist yet.
func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.OrNop(log),
	}
}

// Read loads the cursor, falling back to DefaultCursor
func (s *FileStore) Read(ctx context.Context) int64 {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnWithFields("Checkpoint unreadable, starting from default", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return DefaultCursor
	}

	id, err := parseCursor(string(data))
	if err != nil {
		s.logger.WarnWithFields("Checkpoint content invalid, starting from default", map[string]interface{}{
			"path":    s.path,
			"content": strings.TrimSpace(string(data)),
		})
		return DefaultCursor
	}

	return id
}

// Write saves the cursor to disk atomically
func (s *FileStore) Write(ctx context.Context, id int64) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.New(errs.ErrorTypeCheckpoint, "failed to create checkpoint directory", err)
		}
	}

	// Create temporary file
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.New(errs.ErrorTypeCheckpoint, "failed to create temporary checkpoint file", err)
	}

	if _, err := file.WriteString(strconv.FormatInt(id, 10)); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeCheckpoint, "failed to write checkpoint", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeCheckpoint, "failed to sync checkpoint file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeCheckpoint, "failed to close checkpoint file", err)
	}

	// Atomically replace the old checkpoint file
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeCheckpoint, "failed to replace checkpoint file", err)
	}

	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"path":   s.path,
		"cursor": id,
	})

	return nil
}

// Exists checks if a checkpoint file exists
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func parseCursor(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, fmt.Errorf("negative cursor %d", id)
	}
	// ids start at 1; a zero cursor means nothing was saved yet
	if id == 0 {
		return DefaultCursor, nil
	}
	return id, nil
}

// Open returns the store selected by cfg.Backend
func Open(cfg config.CheckpointConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.File, log), nil
	case "redis":
		return NewRedisStore(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		}, log), nil
	default:
		return nil, errs.New(errs.ErrorTypeConfig, fmt.Sprintf("unknown checkpoint backend %q", cfg.Backend), nil)
	}
}
