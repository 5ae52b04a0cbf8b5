// Package filelist keeps a sorted collection of text files so that the file
// owning an arbitrary byte slice can be found by binary search.
//
// Files are ordered by the address of their buffers. Files whose buffers
// overlap compare equal, so a list never holds two views of the same bytes.
// Empty files cannot own any byte; they are kept in a leading sub-range and
// told apart by identity only.
//
// A FileList is not safe for concurrent use. Callers sharing one between
// goroutines must serialize access themselves.
package filelist

import (
	"errors"
	"slices"

	"github.com/dshills/textstore/internal/engine/textfile"
)

// DefaultGrain is the number of slots the backing array grows by.
const DefaultGrain = 16

// FileList is an address-ordered collection of text files.
// It stores references only; it never owns the files' buffers.
type FileList struct {
	files []*textfile.TextFile
	empty int // number of leading empty files
	grain int
}

// Option configures a FileList.
type Option func(*FileList)

// WithGrain sets how many slots the backing array grows and shrinks by.
func WithGrain(grain int) Option {
	return func(l *FileList) {
		if grain > 0 {
			l.grain = grain
		}
	}
}

// New creates an empty FileList.
func New(opts ...Option) *FileList {
	l := &FileList{grain: DefaultGrain}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Len returns the number of files in the list.
func (l *FileList) Len() int {
	return len(l.files)
}

// Cap returns the number of allocated slots.
func (l *FileList) Cap() int {
	return cap(l.files)
}

// At returns the file at position i. Positions change on every Insert and
// Remove and carry no meaning beyond the current state of the list.
func (l *FileList) At(i int) *textfile.TextFile {
	return l.files[i]
}

// Files returns a copy of the list contents.
func (l *FileList) Files() []*textfile.TextFile {
	return slices.Clone(l.files)
}

// Insert adds f to the list. It returns false, leaving the list unchanged,
// if f is nil or f or a file overlapping its buffer is already present.
func (l *FileList) Insert(f *textfile.TextFile) bool {
	if f == nil {
		return false
	}
	var at int
	if f.IsEmpty() {
		if slices.Contains(l.files[:l.empty], f) {
			return false
		}
		at = l.empty
	} else {
		i, found := slices.BinarySearchFunc(l.files[l.empty:], f, order)
		if found {
			return false
		}
		at = l.empty + i
	}

	l.grow()
	l.files = slices.Insert(l.files, at, f)
	if f.IsEmpty() {
		l.empty++
	}
	return true
}

// Remove deletes f from the list. It returns false if f is not present.
// Only f itself is removed, never a different file overlapping it.
func (l *FileList) Remove(f *textfile.TextFile) bool {
	if f == nil {
		return false
	}
	at := -1
	if !f.IsEmpty() {
		i, found := slices.BinarySearchFunc(l.files[l.empty:], f, order)
		if found && l.files[l.empty+i] == f {
			at = l.empty + i
		}
	} else {
		// f may also have been closed after it was inserted.
		at = slices.Index(l.files, f)
	}
	if at < 0 {
		return false
	}

	l.files = slices.Delete(l.files, at, at+1)
	if at < l.empty {
		l.empty--
	}
	l.shrink()
	return true
}

// FileOf returns the file whose buffer contains the first element of p,
// or nil if no file in the list does.
func (l *FileList) FileOf(p []byte) *textfile.TextFile {
	nonEmpty := l.files[l.empty:]
	i, found := slices.BinarySearchFunc(nonEmpty, p, func(f *textfile.TextFile, p []byte) int {
		return -f.Compare(p)
	})
	if !found {
		return nil
	}
	return nonEmpty[i]
}

// Close empties the list. If releaseAll is set, every file is also closed
// and the errors of their release actions are joined.
func (l *FileList) Close(releaseAll bool) error {
	files := l.files
	l.files = nil
	l.empty = 0

	if !releaseAll {
		return nil
	}
	var errs []error
	for _, f := range files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// grow makes room for one more file, growing by a whole grain.
func (l *FileList) grow() {
	if len(l.files) < cap(l.files) {
		return
	}
	files := make([]*textfile.TextFile, len(l.files), cap(l.files)+l.grain)
	copy(files, l.files)
	l.files = files
}

// shrink releases slots once more than two grains are unused.
func (l *FileList) shrink() {
	if cap(l.files)-len(l.files) <= 2*l.grain {
		return
	}
	files := make([]*textfile.TextFile, len(l.files), len(l.files)+l.grain)
	copy(files, l.files)
	l.files = files
}

// order compares two non-empty files by buffer address.
// Overlapping buffers compare equal.
func order(a, b *textfile.TextFile) int {
	if a.Overlaps(b) {
		return 0
	}
	return b.Compare(a.Bytes())
}
