package app

import (
	"errors"
	"strings"
)

var (
	ErrAlreadyRunning  = errors.New("application already running")
	ErrNotRunning      = errors.New("application not running")
	ErrInitialization  = errors.New("initialization failed")
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrInvalidQuery is returned for query strings that do not parse.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrOutOfRange is returned for queries that address no character.
	ErrOutOfRange = errors.New("out of range")
)

// Op names the stage of the application an Error came from.
type Op string

const (
	OpConfig   Op = "config"
	OpOpen     Op = "open"
	OpQuery    Op = "query"
	OpReload   Op = "reload"
	OpShutdown Op = "shutdown"
)

// Error records which operation failed and on what. Subject is a file
// path, a query or a setting, and may be empty.
type Error struct {
	Op      Op
	Subject string
	Err     error
}

func opError(op Op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Op))
	if e.Subject != "" {
		b.WriteByte(' ')
		b.WriteString(e.Subject)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsOp reports whether err, or anything it wraps, is an *Error for op.
func IsOp(err error, op Op) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		return e.Op == op || IsOp(e.Err, op)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsOp(inner, op) {
				return true
			}
		}
		return false
	}
	return IsOp(errors.Unwrap(err), op)
}
