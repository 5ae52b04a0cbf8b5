package textfile

import (
	"sync"
	"unsafe"
)

// TextFile is an immutable, indexed view over a UTF-8 buffer.
type TextFile struct {
	// Tag is arbitrary data owned by the caller. It is the only field that
	// may change after Load.
	Tag any

	data  []byte
	idx   index
	chars int
	lines int

	release   func() error
	closeOnce sync.Once
	closeErr  error
}

// Load indexes data and returns the resulting TextFile.
// data is borrowed and must not be modified while the TextFile is in use.
// It may contain NUL bytes and invalid UTF-8.
func Load(data []byte, opts ...Option) *TextFile {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	idx, tot := buildIndex(data, cfg.stride)
	return &TextFile{
		Tag:     cfg.tag,
		data:    data,
		idx:     idx,
		chars:   tot.chars,
		lines:   tot.lines,
		release: cfg.release,
	}
}

// Close drops the index and runs the release action given to Load.
// The action runs once; later calls return the same result.
// The TextFile behaves like an empty buffer afterwards.
func (f *TextFile) Close() error {
	f.closeOnce.Do(func() {
		f.data = nil
		f.idx.checkpoints = nil
		f.chars = 0
		f.lines = 1
		if f.release != nil {
			f.closeErr = f.release()
			f.release = nil
		}
	})
	return f.closeErr
}

// Len returns the size of the buffer in bytes.
func (f *TextFile) Len() int {
	return len(f.data)
}

// Chars returns the number of characters in the buffer.
func (f *TextFile) Chars() int {
	return f.chars
}

// Lines returns the number of lines, which is one more than the number of
// line feeds. An empty buffer has a single empty line.
func (f *TextFile) Lines() int {
	return f.lines
}

// Bytes returns the underlying buffer. Callers must not modify it.
func (f *TextFile) Bytes() []byte {
	return f.data
}

// IsEmpty reports whether the buffer has no bytes.
func (f *TextFile) IsEmpty() bool {
	return len(f.data) == 0
}

// Stride returns the checkpoint stride in bytes.
func (f *TextFile) Stride() int {
	return f.idx.stride
}

// Checkpoints returns a copy of the checkpoint index.
func (f *TextFile) Checkpoints() []Location {
	out := make([]Location, len(f.idx.checkpoints))
	copy(out, f.idx.checkpoints)
	return out
}

// Slice returns the bytes in [from, to), clamped to the buffer.
func (f *TextFile) Slice(from, to int) []byte {
	from = min(max(from, 0), len(f.data))
	to = min(max(to, from), len(f.data))
	return f.data[from:to:to]
}

// Offset converts p, a slice starting inside the buffer, to a byte offset.
// Only the address of p's first element is used; its length may be zero.
// Returns ErrBeforeStart or ErrPastEnd when p does not point into the buffer.
func (f *TextFile) Offset(p []byte) (int, error) {
	base, end := f.addrRange()
	ptr := addr(p)
	switch {
	case base == end || ptr < base:
		return 0, ErrBeforeStart
	case ptr >= end:
		return 0, ErrPastEnd
	}
	return int(ptr - base), nil
}

// Compare reports where p points relative to the buffer: -1 if before its
// first byte (or the buffer is empty), 1 if at or after its end, 0 if inside.
func (f *TextFile) Compare(p []byte) int {
	base, end := f.addrRange()
	ptr := addr(p)
	switch {
	case base == end || ptr < base:
		return -1
	case ptr >= end:
		return 1
	}
	return 0
}

// Overlaps reports whether the buffers of f and g share any byte.
func (f *TextFile) Overlaps(g *TextFile) bool {
	fb, fe := f.addrRange()
	gb, ge := g.addrRange()
	return fb < ge && gb < fe
}

// addrRange returns the address range [base, end) of the buffer.
func (f *TextFile) addrRange() (uintptr, uintptr) {
	if len(f.data) == 0 {
		return 0, 0
	}
	base := addr(f.data)
	return base, base + uintptr(len(f.data))
}

// addr returns the address of the first element of p, or 0 for a nil slice.
// The address is only compared, never converted back into a pointer.
func addr(p []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(p)))
}
