// Package watcher reports changes to the files behind open documents.
//
// Files are watched through their parent directories, so a file replaced
// by rename (as most editors save) keeps producing events. Events for
// other entries of a watched directory are dropped.
package watcher

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrClosed          = errors.New("watcher closed")
	ErrAlreadyWatching = errors.New("already watching")
	ErrNotWatching     = errors.New("not watching")
	ErrNotFile         = errors.New("not a regular file")
)

// Op is a set of file operations. The bits match fsnotify.Op.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod

	opAll = OpCreate | OpWrite | OpRemove | OpRename | OpChmod
)

var opNames = [...]string{"CREATE", "WRITE", "REMOVE", "RENAME", "CHMOD"}

// String joins the names of the operations in op with "|".
func (op Op) String() string {
	var names []string
	for i, name := range opNames {
		if op&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// Has reports whether op includes every operation in o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Changed reports whether op can alter a file's content.
func (op Op) Changed() bool {
	return op&(OpCreate|OpWrite|OpRename) != 0
}

// Gone reports whether op means the file no longer exists at its path.
func (op Op) Gone() bool {
	return op&(OpRemove|OpRename) != 0 && op&OpCreate == 0
}

// Event is a change to a watched file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Op holds every operation seen for Path since its last event.
	Op Op

	// At is when the latest of those operations was seen.
	At time.Time
}

// Source produces change events for a set of files. Events and Errors
// are closed by Close.
type Source interface {
	Watch(path string) error
	Unwatch(path string) error
	Watched() []string
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// DefaultBuffer is the channel capacity used when none is given.
const DefaultBuffer = 64

// Run delivers events and errors from src to the handlers until ctx is
// done or src is closed. Either handler may be nil.
func Run(ctx context.Context, src Source, onEvent func(Event), onError func(error)) {
	events, errs := src.Events(), src.Errors()
	for events != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if onEvent != nil {
				onEvent(event)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
