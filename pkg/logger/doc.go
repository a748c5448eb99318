// Package logger provides the structured logging interface used by imgaudit.
//
// It wraps zerolog with:
//   - Multiple log levels (Debug, Info, Warn, Error)
//   - Structured logging with fields
//   - Colored console output on stderr
//   - Size-based file rotation through lumberjack
//   - A capturing TestLogger and a no-op logger for tests
//
// Basic usage:
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	log.WithField("table", cfg.Database.Table).Info("Scan starting")
//
// Components receive a Logger explicitly; the package-level GetLogger is only
// used by the command layer.
package logger
