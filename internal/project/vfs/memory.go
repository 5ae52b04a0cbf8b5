package vfs

import (
	"bytes"
	"io"
	"io/fs"
	"maps"
	"path"
	"slices"
	"sync"
	"syscall"
	"time"
)

// MemFS is an in-memory VFS with slash-separated, rooted paths.
// Relative paths are taken from the root. It is safe for concurrent use.
type MemFS struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
}

// memEntry is a file or a directory. It doubles as its own fs.FileInfo;
// entries are replaced, never mutated, once published.
type memEntry struct {
	name    string
	data    []byte
	mode    fs.FileMode
	modTime time.Time
}

func (e *memEntry) Name() string       { return e.name }
func (e *memEntry) Size() int64        { return int64(len(e.data)) }
func (e *memEntry) Mode() fs.FileMode  { return e.mode }
func (e *memEntry) ModTime() time.Time { return e.modTime }
func (e *memEntry) IsDir() bool        { return e.mode.IsDir() }
func (e *memEntry) Sys() any           { return nil }

var _ VFS = (*MemFS)(nil)

// NewMemFS returns a MemFS holding only the root directory.
func NewMemFS() *MemFS {
	return &MemFS{entries: map[string]*memEntry{
		"/": {name: "/", mode: fs.ModeDir | 0o755},
	}}
}

func rooted(p string) string {
	return path.Clean("/" + p)
}

func (m *MemFS) lookup(op, p string) (*memEntry, error) {
	m.mu.RLock()
	e, ok := m.entries[p]
	m.mu.RUnlock()
	if !ok {
		return nil, &fs.PathError{Op: op, Path: p, Err: fs.ErrNotExist}
	}
	return e, nil
}

// Open returns a reader over a snapshot of the file.
func (m *MemFS) Open(p string) (io.ReadCloser, error) {
	p = rooted(p)
	e, err := m.lookup("open", p)
	if err != nil {
		return nil, err
	}
	if e.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: p, Err: syscall.EISDIR}
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

// ReadFile returns a copy of the file content.
func (m *MemFS) ReadFile(p string) ([]byte, error) {
	rc, err := m.Open(p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Stat describes the entry at p.
func (m *MemFS) Stat(p string) (fs.FileInfo, error) {
	return m.lookup("stat", rooted(p))
}

// Abs roots and cleans p.
func (m *MemFS) Abs(p string) (string, error) {
	return rooted(p), nil
}

// WriteFile replaces the file at p, creating missing parent directories.
// Each write moves the modification time strictly forward so that change
// detection by time works even on coarse clocks.
func (m *MemFS) WriteFile(p string, data []byte, perm fs.FileMode) error {
	p = rooted(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if old, ok := m.entries[p]; ok {
		if old.IsDir() {
			return &fs.PathError{Op: "write", Path: p, Err: syscall.EISDIR}
		}
		if !now.After(old.modTime) {
			now = old.modTime.Add(time.Nanosecond)
		}
	}
	m.mkdirAll(path.Dir(p), now)
	m.entries[p] = &memEntry{
		name:    path.Base(p),
		data:    bytes.Clone(data),
		mode:    perm.Perm(),
		modTime: now,
	}
	return nil
}

// AddFile writes content to p with mode 0644.
func (m *MemFS) AddFile(p, content string) error {
	return m.WriteFile(p, []byte(content), 0o644)
}

// AddDir creates the directory p and its parents.
func (m *MemFS) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(rooted(p), time.Now())
}

func (m *MemFS) mkdirAll(dir string, modTime time.Time) {
	for ; ; dir = path.Dir(dir) {
		if _, ok := m.entries[dir]; ok {
			return
		}
		m.entries[dir] = &memEntry{name: path.Base(dir), mode: fs.ModeDir | 0o755, modTime: modTime}
	}
}

// Remove deletes the file at p. Directories are left in place.
func (m *MemFS) Remove(p string) error {
	p = rooted(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[p]
	if !ok || e.IsDir() {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	delete(m.entries, p)
	return nil
}

// Files returns the sorted paths of every file.
func (m *MemFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []string
	for _, p := range slices.Sorted(maps.Keys(m.entries)) {
		if !m.entries[p].IsDir() {
			files = append(files, p)
		}
	}
	return files
}
