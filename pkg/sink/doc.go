// Package sink records corrupted images.
//
// Two append-only text files are written:
//   - the URL file, one full image URL per line
//   - the id file, each reference id followed by a comma ("12,57,")
//
// Each append is synced to disk before returning.
package sink
