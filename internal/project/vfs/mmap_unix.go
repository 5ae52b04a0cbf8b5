//go:build unix

package vfs

import (
	"errors"
	"math"
	"os"

	"golang.org/x/sys/unix"

	perrors "github.com/dshills/textstore/internal/project/errors"
)

// mmapFile maps size bytes of f read-only and private.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	if size > math.MaxInt {
		return nil, perrors.ErrFileTooLarge
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		if errors.Is(err, unix.ENODEV) || errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EACCES) {
			return nil, perrors.ErrMmapUnsupported
		}
		return nil, err
	}
	return data, nil
}

func munmap(data []byte) error {
	return unix.Munmap(data)
}
