package textfile

import (
	"io"
)

// Builder accumulates bytes on the heap and indexes them once in Build.
// The zero value is ready to use.
type Builder struct {
	buf  []byte
	opts []Option
}

// NewBuilder creates a builder whose Build applies opts.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{opts: opts}
}

// Grow ensures room for another n bytes.
func (b *Builder) Grow(n int) {
	if n > cap(b.buf)-len(b.buf) {
		nb := make([]byte, len(b.buf), 2*cap(b.buf)+n)
		copy(nb, b.buf)
		b.buf = nb
	}
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteString appends s.
func (b *Builder) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// ReadFrom implements io.ReaderFrom, reading r until EOF.
// Chunks grow from 4 KiB up to 2 MiB as the content gets larger.
func (b *Builder) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		chunk := readChunk
		if len(b.buf) >= hugeChunk {
			chunk = hugeChunk
		}
		b.Grow(chunk)

		n, err := r.Read(b.buf[len(b.buf):cap(b.buf)])
		b.buf = b.buf[:len(b.buf)+n]
		total += int64(n)

		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

const (
	readChunk = 4 << 10
	hugeChunk = 2 << 20
)

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset discards the accumulated bytes.
func (b *Builder) Reset() {
	b.buf = nil
}

// Build indexes the accumulated bytes and returns the TextFile.
// The builder hands its buffer over and is reset.
// Options passed here are applied after those given to NewBuilder.
func (b *Builder) Build(opts ...Option) *TextFile {
	data := b.buf
	if len(data) < cap(data) {
		// Trim spare capacity so the buffer is not pinned larger than needed.
		data = append([]byte(nil), data...)
	}
	b.buf = nil

	all := make([]Option, 0, len(b.opts)+len(opts))
	all = append(all, b.opts...)
	all = append(all, opts...)
	return Load(data, all...)
}
