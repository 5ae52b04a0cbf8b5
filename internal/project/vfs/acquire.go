package vfs

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	perrors "github.com/dshills/textstore/internal/project/errors"
)

// CompressedExt marks files that are zstd compressed on disk and
// decompressed into memory on acquisition.
const CompressedExt = ".zst"

// zstdMinMemory is the decoder memory allowed even for small size limits,
// enough for the default encoder window.
const zstdMinMemory = 8 << 20

// Buffer is the immutable byte storage backing one text file.
// Release must be called once the bytes are no longer referenced.
type Buffer struct {
	Data       []byte
	Mapped     bool
	Compressed bool

	release func() error
}

// Release frees the storage. It is safe to call more than once.
func (b *Buffer) Release() error {
	if b == nil || b.release == nil {
		return nil
	}
	rel := b.release
	b.release = nil
	return rel()
}

// AcquireOptions controls how Acquire obtains a buffer.
type AcquireOptions struct {
	// MaxSize rejects files (after decompression) larger than this.
	// Zero means unlimited.
	MaxSize int64

	// Mmap maps regular files read-only instead of reading them.
	Mmap bool
}

// Acquire loads the file at path into a Buffer.
//
// Regular files on an OSFS are memory mapped when opts.Mmap is set and
// the platform supports it; anything else is read into memory. Files
// ending in CompressedExt are decompressed.
func Acquire(fsys VFS, path string, opts AcquireOptions) (*Buffer, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, perrors.Wrap("stat", path, err)
	}
	if info.IsDir() {
		return nil, perrors.Wrap("open", path, perrors.ErrIsDirectory)
	}
	compressed := strings.HasSuffix(path, CompressedExt)
	if !compressed && opts.MaxSize > 0 && info.Size() > opts.MaxSize {
		return nil, perrors.Wrap("open", path, perrors.ErrFileTooLarge)
	}

	rc, err := fsys.Open(path)
	if err != nil {
		return nil, perrors.Wrap("open", path, err)
	}
	defer rc.Close()

	if compressed {
		return decompress(rc, path, opts.MaxSize)
	}

	if f, ok := rc.(*os.File); ok && opts.Mmap && info.Mode().IsRegular() && info.Size() > 0 {
		data, err := mmapFile(f, info.Size())
		switch {
		case err == nil:
			return &Buffer{
				Data:    data,
				Mapped:  true,
				release: func() error { return munmap(data) },
			}, nil
		case !errors.Is(err, perrors.ErrMmapUnsupported):
			return nil, perrors.Wrap("mmap", path, err)
		}
	}

	data, err := readAll(rc, info.Size(), opts.MaxSize)
	if err != nil {
		return nil, perrors.Wrap("read", path, err)
	}
	return &Buffer{Data: data}, nil
}

// AcquireReader drains r into a Buffer. It is used for standard input
// and other streams whose size is not known up front.
func AcquireReader(r io.Reader, maxSize int64) (*Buffer, error) {
	data, err := readAll(r, 0, maxSize)
	if err != nil {
		return nil, err
	}
	return &Buffer{Data: data}, nil
}

// decompress streams r through a zstd decoder. Output beyond maxSize is
// never buffered, and frames whose window alone exceeds the limit are
// refused before decoding.
func decompress(r io.Reader, path string, maxSize int64) (*Buffer, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if maxSize > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(max(maxSize, zstdMinMemory))))
	}
	dec, err := zstd.NewReader(r, opts...)
	if err != nil {
		return nil, perrors.Wrap("decompress", path, err)
	}
	defer dec.Close()

	data, err := readAll(dec, 0, maxSize)
	switch {
	case errors.Is(err, zstd.ErrDecoderSizeExceeded), errors.Is(err, zstd.ErrWindowSizeExceeded):
		return nil, perrors.Wrap("decompress", path, perrors.ErrFileTooLarge)
	case err != nil:
		return nil, perrors.Wrap("decompress", path, err)
	}
	return &Buffer{Data: data, Compressed: true}, nil
}

// readAll reads r to EOF. sizeHint presizes the buffer; the read may
// still grow past it for files that changed since Stat.
func readAll(r io.Reader, sizeHint, maxSize int64) ([]byte, error) {
	limit := r
	if maxSize > 0 {
		limit = io.LimitReader(r, maxSize+1)
	}

	buf := make([]byte, 0, max(sizeHint, 512))
	for {
		if len(buf) == cap(buf) {
			buf = append(buf, 0)[:len(buf)]
		}
		n, err := limit.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if maxSize > 0 && int64(len(buf)) > maxSize {
			return nil, perrors.ErrFileTooLarge
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
