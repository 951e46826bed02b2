// Package shots is the authoritative record of every shot in the current
// storyboard, persisted in SQLite.
//
// All mutations go through the Store so the lifecycle invariants hold after
// every write:
//
//   - numbers are exactly 1..N with no gaps or duplicates
//   - complete implies both code and a video URL
//   - pending and generating imply no video URL
//   - code_ready and rendering imply code
//   - an error message is present only in the error state
//
// Status changes follow ValidTransition. The auto-fix retry counter is not
// part of the record; it lives in the autofix package.
package shots
