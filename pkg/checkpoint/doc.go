// Package checkpoint persists the scan cursor so an interrupted audit resumes
// where it stopped.
//
// The cursor is the identifier of the last row whose batch was fully
// verified and recorded. Two backends are available:
//   - FileStore: a plain text file holding one decimal integer, replaced
//     atomically on every write (default "process.txt")
//   - RedisStore: a single Redis key holding the same decimal value
//
// A missing, unreadable or malformed checkpoint reads as DefaultCursor (1),
// so a fresh deployment starts at the beginning of the table.
package checkpoint
