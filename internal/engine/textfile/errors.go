package textfile

import "errors"

// Errors returned by byte lookups.
var (
	// ErrBeforeStart indicates a position precedes the first byte of the
	// buffer, or the buffer is empty.
	ErrBeforeStart = errors.New("position before start of buffer")

	// ErrPastEnd indicates a position at or after the end of the buffer.
	ErrPastEnd = errors.New("position past end of buffer")
)
