package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"imgaudit/pkg/config"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
)

// FileSink appends corrupted image URLs and reference ids to two files.
// Existing content is never rewritten and entries are not deduplicated.
type FileSink struct {
	urlPath string
	idPath  string
	logger  logger.Logger
	mu      sync.Mutex
}

// NewFileSink creates a sink writing to urlPath and idPath, creating their
// parent directories if needed
func NewFileSink(urlPath, idPath string, log logger.Logger) (*FileSink, error) {
	for _, path := range []string{urlPath, idPath} {
		if path == "" {
			return nil, errs.New(errs.ErrorTypeConfig, "output file path is empty", nil)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errs.New(errs.ErrorTypeSink, "failed to create output directory", err)
			}
		}
	}

	return &FileSink{
		urlPath: urlPath,
		idPath:  idPath,
		logger:  logger.OrNop(log),
	}, nil
}

// FromConfig creates a sink for the configured output files
func FromConfig(cfg config.OutputConfig, log logger.Logger) (*FileSink, error) {
	return NewFileSink(cfg.CorruptedURLsFile, cfg.CorruptedIDsFile, log)
}

// AppendURLs appends each URL followed by a newline
func (s *FileSink) AppendURLs(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	return s.appendTo(s.urlPath, strings.Join(urls, "\n")+"\n", len(urls))
}

// AppendIDs appends each reference id followed by a comma
func (s *FileSink) AppendIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte(',')
	}
	return s.appendTo(s.idPath, b.String(), len(ids))
}

// URLPath returns the corrupted URL file location
func (s *FileSink) URLPath() string {
	return s.urlPath
}

// IDPath returns the corrupted id file location
func (s *FileSink) IDPath() string {
	return s.idPath
}

func (s *FileSink) appendTo(path, data string, entries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errs.New(errs.ErrorTypeSink, fmt.Sprintf("failed to open %s", path), err)
	}

	if _, err := file.WriteString(data); err != nil {
		file.Close()
		return errs.New(errs.ErrorTypeSink, fmt.Sprintf("failed to append to %s", path), err)
	}

	// Results must be on disk before the checkpoint moves past them
	if err := file.Sync(); err != nil {
		file.Close()
		return errs.New(errs.ErrorTypeSink, fmt.Sprintf("failed to sync %s", path), err)
	}

	if err := file.Close(); err != nil {
		return errs.New(errs.ErrorTypeSink, fmt.Sprintf("failed to close %s", path), err)
	}

	s.logger.DebugWithFields("Results appended", map[string]interface{}{
		"path":    path,
		"entries": entries,
	})

	return nil
}
