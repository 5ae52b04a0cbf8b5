//go:build !unix

package vfs

import (
	"os"

	perrors "github.com/dshills/textstore/internal/project/errors"
)

func mmapFile(*os.File, int64) ([]byte, error) {
	return nil, perrors.ErrMmapUnsupported
}

func munmap([]byte) error { return nil }
