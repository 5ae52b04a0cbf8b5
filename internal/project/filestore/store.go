package filestore

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dshills/textstore/internal/engine/filelist"
	"github.com/dshills/textstore/internal/engine/textfile"
	perrors "github.com/dshills/textstore/internal/project/errors"
	"github.com/dshills/textstore/internal/project/vfs"
)

// ErrNotReloadable is returned when reloading a document read from a stream.
var ErrNotReloadable = errors.New("document has no backing file")

// Logger is the logging surface the store needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// FileStore manages open documents.
// It is safe for concurrent use: lookups share a read lock, while opening,
// closing and reloading take the write lock. A Document returned by Get or
// Open is released when it is closed or replaced; use Borrow to keep its
// content readable across a concurrent Reload or Close.
type FileStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
	files     *filelist.FileList
	vfs       vfs.VFS

	// Configuration
	maxFileSize int64 // Maximum file size to open (0 = unlimited)
	stride      int
	mmap        bool
	allowBinary bool
	logger      Logger

	// Event handlers
	onOpen   []func(doc *Document)
	onClose  []func(path string)
	onReload []func(doc *Document)
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithMaxFileSize sets the maximum file size.
func WithMaxFileSize(size int64) Option {
	return func(s *FileStore) {
		s.maxFileSize = size
	}
}

// WithStride sets the checkpoint stride of indexed files.
func WithStride(stride int) Option {
	return func(s *FileStore) {
		s.stride = stride
	}
}

// WithGrain sets the growth step of the file registry.
func WithGrain(grain int) Option {
	return func(s *FileStore) {
		s.files = filelist.New(filelist.WithGrain(grain))
	}
}

// WithMmap enables or disables memory mapping of regular files.
func WithMmap(enabled bool) Option {
	return func(s *FileStore) {
		s.mmap = enabled
	}
}

// WithAllowBinary lets binary files be opened.
func WithAllowBinary(allow bool) Option {
	return func(s *FileStore) {
		s.allowBinary = allow
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileStore creates a new FileStore reading through fsys.
func NewFileStore(fsys vfs.VFS, opts ...Option) *FileStore {
	s := &FileStore{
		documents:   make(map[string]*Document),
		files:       filelist.New(),
		vfs:         fsys,
		maxFileSize: 64 << 20,
		stride:      textfile.DefaultStride,
		mmap:        true,
		logger:      nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a file and returns its Document.
// If the file is already open, returns the existing Document.
func (s *FileStore) Open(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath, err := s.vfs.Abs(path)
	if err != nil {
		return nil, perrors.Wrap("open", path, err)
	}

	if doc, ok := s.Get(absPath); ok {
		return doc, nil
	}

	buf, modTime, err := s.acquire(absPath)
	if err != nil {
		return nil, err
	}
	doc := newDocument(absPath, buf, modTime, s.stride)
	return s.register(doc)
}

// OpenReader reads r to EOF and registers the content under name.
// The resulting document cannot be reloaded.
func (s *FileStore) OpenReader(ctx context.Context, name string, r io.Reader) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc, ok := s.Get(name); ok {
		return doc, nil
	}

	buf, err := vfs.AcquireReader(r, s.maxFileSize)
	if err != nil {
		return nil, perrors.Wrap("read", name, err)
	}
	if !s.allowBinary && vfs.IsBinary(buf.Data) {
		_ = buf.Release()
		return nil, perrors.Wrap("read", name, perrors.ErrBinaryFile)
	}
	doc := newDocument(name, buf, time.Now(), s.stride)
	doc.stream = true
	return s.register(doc)
}

func (s *FileStore) acquire(absPath string) (*vfs.Buffer, time.Time, error) {
	info, err := s.vfs.Stat(absPath)
	if err != nil {
		return nil, time.Time{}, perrors.Wrap("open", absPath, err)
	}

	buf, err := vfs.Acquire(s.vfs, absPath, vfs.AcquireOptions{
		MaxSize: s.maxFileSize,
		Mmap:    s.mmap,
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	if !s.allowBinary && vfs.IsBinary(buf.Data) {
		_ = buf.Release()
		return nil, time.Time{}, perrors.Wrap("open", absPath, perrors.ErrBinaryFile)
	}
	return buf, info.ModTime(), nil
}

// register adds doc to the store. If another goroutine registered the
// same path first, doc is closed and the existing document returned.
func (s *FileStore) register(doc *Document) (*Document, error) {
	s.mu.Lock()
	if existing, ok := s.documents[doc.Path]; ok {
		s.mu.Unlock()
		_ = doc.File.Close()
		return existing, nil
	}
	if !s.files.Insert(doc.File) {
		s.mu.Unlock()
		_ = doc.File.Close()
		return nil, perrors.Wrap("open", doc.Path, perrors.ErrOverlap)
	}
	s.documents[doc.Path] = doc
	handlers := slices.Clone(s.onOpen)
	s.mu.Unlock()

	s.logger.Debug("opened %s (%d bytes, %d lines, mapped=%v)", doc.Path, doc.Size(), doc.LineCount(), doc.Mapped)
	for _, handler := range handlers {
		handler(doc)
	}
	return doc, nil
}

// Close closes a document and releases its buffer.
func (s *FileStore) Close(ctx context.Context, path string) error {
	absPath := s.key(path)

	s.mu.Lock()
	doc, ok := s.documents[absPath]
	if !ok {
		s.mu.Unlock()
		return perrors.Wrap("close", path, perrors.ErrNotOpen)
	}
	delete(s.documents, absPath)
	s.files.Remove(doc.File)
	handlers := slices.Clone(s.onClose)
	s.mu.Unlock()

	err := doc.retire()
	s.logger.Debug("closed %s", absPath)
	for _, handler := range handlers {
		handler(absPath)
	}
	if err != nil {
		return perrors.Wrap("close", path, err)
	}
	return nil
}

// CloseAll closes all open documents. Borrowed documents are released
// when their last borrow ends.
func (s *FileStore) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	clear(s.documents)
	_ = s.files.Close(false)
	handlers := slices.Clone(s.onClose)
	s.mu.Unlock()

	slices.SortFunc(docs, func(a, b *Document) int {
		return strings.Compare(a.Path, b.Path)
	})
	var errs []error
	for _, doc := range docs {
		if err := doc.retire(); err != nil {
			errs = append(errs, perrors.Wrap("close", doc.Path, err))
		}
		for _, handler := range handlers {
			handler(doc.Path)
		}
	}
	return errors.Join(errs...)
}

// Reload re-reads a document from disk. The document is replaced by a new
// one with a freshly built index, unless the content hash is unchanged.
// It returns the document now registered under path.
func (s *FileStore) Reload(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath := s.key(path)

	doc, done, ok := s.Borrow(absPath)
	if !ok {
		return nil, perrors.Wrap("reload", path, perrors.ErrNotOpen)
	}
	defer done()
	if doc.stream {
		return nil, perrors.Wrap("reload", path, ErrNotReloadable)
	}

	buf, modTime, err := s.acquire(absPath)
	if err != nil {
		return nil, err
	}

	next := doc.successor(buf, modTime, s.stride)
	if next.Hash == doc.Hash && next.Size() == doc.Size() {
		_ = next.File.Close()
		doc.markVerified(modTime)
		s.logger.Debug("reload %s: content unchanged", absPath)
		return doc, nil
	}

	s.mu.Lock()
	if s.documents[absPath] != doc {
		// Closed or replaced while reading.
		s.mu.Unlock()
		_ = next.File.Close()
		return nil, perrors.Wrap("reload", path, perrors.ErrNotOpen)
	}
	s.files.Remove(doc.File)
	if !s.files.Insert(next.File) {
		s.files.Insert(doc.File)
		s.mu.Unlock()
		_ = next.File.Close()
		return nil, perrors.Wrap("reload", path, perrors.ErrOverlap)
	}
	s.documents[absPath] = next
	handlers := slices.Clone(s.onReload)
	s.mu.Unlock()

	if err := doc.retire(); err != nil {
		s.logger.Warn("release previous buffer of %s: %v", absPath, err)
	}
	s.logger.Info("reloaded %s (version %d)", absPath, next.Version)
	for _, handler := range handlers {
		handler(next)
	}
	return next, nil
}

// Get returns a document by path if it is open.
func (s *FileStore) Get(path string) (*Document, bool) {
	absPath := s.key(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[absPath]
	return doc, ok
}

// Borrow returns the open document for path and keeps its content
// readable until done is called, even if the document is reloaded or
// closed in the meantime. done may be called more than once.
func (s *FileStore) Borrow(path string) (doc *Document, done func(), ok bool) {
	absPath := s.key(path)

	s.mu.RLock()
	doc, ok = s.documents[absPath]
	if ok {
		ok = doc.acquire()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	var once sync.Once
	done = func() {
		once.Do(func() {
			if err := doc.release(); err != nil {
				s.logger.Warn("release buffer of %s: %v", doc.Path, err)
			}
		})
	}
	return doc, done, true
}

// IsOpen returns true if the file is open.
func (s *FileStore) IsOpen(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// FileOf returns the open document whose content contains the first byte
// of p, or nil.
func (s *FileStore) FileOf(p []byte) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileOf(p)
}

func (s *FileStore) fileOf(p []byte) *Document {
	f := s.files.FileOf(p)
	if f == nil {
		return nil
	}
	return f.Tag.(*Document)
}

// Resolve finds the document owning the first byte of p and the location
// of that byte within it.
func (s *FileStore) Resolve(p []byte) (*Document, textfile.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := s.fileOf(p)
	if doc == nil {
		return nil, textfile.Location{}, perrors.ErrNotOwned
	}
	loc, err := doc.File.LocatePtr(p)
	if err != nil {
		return nil, textfile.Location{}, err
	}
	return doc, loc, nil
}

// Documents returns all open documents ordered by path.
func (s *FileStore) Documents() []*Document {
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	slices.SortFunc(docs, func(a, b *Document) int {
		return strings.Compare(a.Path, b.Path)
	})
	return docs
}

// Count returns the number of open documents.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// CheckExternalChanges returns the open documents whose file on disk has a
// newer modification time.
func (s *FileStore) CheckExternalChanges() []*Document {
	var changed []*Document
	for _, doc := range s.Documents() {
		if doc.stream {
			continue
		}
		info, err := s.vfs.Stat(doc.Path)
		if err != nil {
			// File may have been deleted
			continue
		}
		if doc.HasExternalChanges(info.ModTime()) {
			changed = append(changed, doc)
		}
	}
	return changed
}

// key maps a path to the key documents are stored under. Stream names
// that are not paths are used unchanged.
func (s *FileStore) key(path string) string {
	s.mu.RLock()
	_, ok := s.documents[path]
	s.mu.RUnlock()
	if ok {
		return path
	}
	absPath, err := s.vfs.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

// OnOpen registers a handler called after a document is opened.
func (s *FileStore) OnOpen(handler func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, handler)
}

// OnClose registers a handler called after a document is closed.
func (s *FileStore) OnClose(handler func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, handler)
}

// OnReload registers a handler called with the replacement document
// after a reload changed content.
func (s *FileStore) OnReload(handler func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, handler)
}

// Stats summarizes the open documents.
type Stats struct {
	OpenCount   int   `json:"openCount"`
	MappedCount int   `json:"mappedCount"`
	TotalSize   int64 `json:"totalSize"`
	TotalChars  int64 `json:"totalChars"`
	TotalLines  int64 `json:"totalLines"`
	Checkpoints int64 `json:"checkpoints"`
	RegistryCap int   `json:"registryCap"`
}

// GetStats returns statistics about the store.
func (s *FileStore) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		OpenCount:   len(s.documents),
		RegistryCap: s.files.Cap(),
	}
	for _, doc := range s.documents {
		if doc.Mapped {
			stats.MappedCount++
		}
		stats.TotalSize += int64(doc.File.Len())
		stats.TotalChars += int64(doc.File.Chars())
		stats.TotalLines += int64(doc.File.Lines())
		stats.Checkpoints += int64(len(doc.File.Checkpoints()))
	}
	return stats
}
