// Package vfs abstracts the file system text buffers are acquired from.
//
// OSFS reads the real file system and memory maps regular files when
// possible. MemFS keeps files in memory and is used by tests.
package vfs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// VFS is the read side of a file system, as much of it as Acquire needs.
type VFS interface {
	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Stat describes the file at path.
	Stat(path string) (fs.FileInfo, error)

	// Abs returns the canonical absolute form of path.
	Abs(path string) (string, error)
}

// OSFS is the operating system's file system.
type OSFS struct{}

var _ VFS = OSFS{}

// NewOSFS returns the operating system's file system.
func NewOSFS() OSFS { return OSFS{} }

// Open returns an *os.File so that Acquire can map it.
func (OSFS) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

// Stat follows symlinks.
func (OSFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// Abs cleans path and makes it absolute against the working directory.
func (OSFS) Abs(path string) (string, error) { return filepath.Abs(path) }
