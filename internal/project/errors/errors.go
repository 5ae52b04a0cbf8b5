// Package errors defines the errors shared by the vfs and filestore
// packages. Missing files are reported with fs.ErrNotExist.
package errors

import (
	"errors"
	"io/fs"
)

var (
	ErrIsDirectory     = errors.New("is a directory")
	ErrFileTooLarge    = errors.New("file too large")
	ErrBinaryFile      = errors.New("binary file")
	ErrNotOpen         = errors.New("not open")
	ErrMmapUnsupported = errors.New("memory mapping not supported")

	// ErrOverlap is returned when a buffer shares bytes with an open
	// document.
	ErrOverlap = errors.New("buffer overlaps an open document")

	// ErrNotOwned is returned for a pointer into no open document.
	ErrNotOwned = errors.New("pointer not owned by any open document")
)

// FileError records the step and file a store operation failed on.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error { return e.Err }

// Wrap attaches op and path to err. It returns nil for a nil err, and
// strips an *fs.PathError for the same path so the path is not repeated.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FileError
	if errors.As(err, &fe) && fe.Path == path {
		return err
	}
	var pe *fs.PathError
	if errors.As(err, &pe) && pe.Path == path {
		err = pe.Err
	}
	return &FileError{Op: op, Path: path, Err: err}
}
