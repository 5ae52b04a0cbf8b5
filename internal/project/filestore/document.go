// Package filestore keeps the set of open text documents.
//
// Each Document wraps an indexed textfile.TextFile. All files are also
// registered in one address-ordered filelist.FileList, so any byte slice
// taken from an open document can be traced back to its owner and
// located within it.
package filestore

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-enry/go-enry/v2"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/dshills/textstore/internal/engine/textfile"
	"github.com/dshills/textstore/internal/project/vfs"
)

// Document is an open file. It is immutable: Reload replaces the
// Document in the store rather than changing it.
type Document struct {
	// ID stays the same across reloads of the same path.
	ID uuid.UUID

	// Path is the absolute path, or the name given to OpenReader.
	Path string

	// Version starts at 1 and increments on each reload that changed content.
	Version int64

	// File is the indexed content.
	File *textfile.TextFile

	// Hash is the xxh3 hash of the content.
	Hash uint64

	// Language is the detected language name, or empty when unknown.
	Language string

	Encoding   vfs.Encoding
	LineEnding vfs.LineEnding

	// Mapped reports whether the content is memory mapped.
	Mapped bool

	// Compressed reports whether the content was decompressed from disk.
	Compressed bool

	OpenedAt time.Time
	ModTime  time.Time

	stream bool

	// verified is the newest disk modification time, in Unix
	// nanoseconds, at which the content was found unchanged.
	verified atomic.Int64

	// File is closed by retire, or by the last reader after it.
	hold    sync.Mutex
	readers int
	retired bool
}

func newDocument(path string, buf *vfs.Buffer, modTime time.Time, stride int) *Document {
	info := vfs.DetectEncodingInfo(buf.Data)
	doc := &Document{
		ID:         uuid.New(),
		Path:       path,
		Version:    1,
		Hash:       xxh3.Hash(buf.Data),
		Language:   detectLanguage(path, buf.Data),
		Encoding:   info.Encoding,
		LineEnding: info.LineEnding,
		Mapped:     buf.Mapped,
		Compressed: buf.Compressed,
		OpenedAt:   time.Now(),
		ModTime:    modTime,
	}
	doc.File = textfile.Load(buf.Data,
		textfile.WithStride(stride),
		textfile.WithRelease(buf.Release),
		textfile.WithTag(doc),
	)
	return doc
}

// successor builds the Document that replaces d after a reload.
func (d *Document) successor(buf *vfs.Buffer, modTime time.Time, stride int) *Document {
	next := newDocument(d.Path, buf, modTime, stride)
	next.ID = d.ID
	next.Version = d.Version + 1
	next.OpenedAt = d.OpenedAt
	return next
}

// acquire registers a reader of File. It fails once d has been retired.
func (d *Document) acquire() bool {
	d.hold.Lock()
	defer d.hold.Unlock()
	if d.retired {
		return false
	}
	d.readers++
	return true
}

// release ends a read started by acquire. The last reader of a retired
// document closes its file.
func (d *Document) release() error {
	d.hold.Lock()
	d.readers--
	last := d.retired && d.readers == 0
	d.hold.Unlock()
	if last {
		return d.File.Close()
	}
	return nil
}

// retire marks d as replaced or closed. File is closed now if nobody is
// reading it, otherwise when the last reader releases it.
func (d *Document) retire() error {
	d.hold.Lock()
	if d.retired {
		d.hold.Unlock()
		return nil
	}
	d.retired = true
	idle := d.readers == 0
	d.hold.Unlock()
	if !idle {
		return nil
	}
	return d.File.Close()
}

// Readers returns the number of borrows currently holding d.
func (d *Document) Readers() int {
	d.hold.Lock()
	defer d.hold.Unlock()
	return d.readers
}

// Size returns the content length in bytes.
func (d *Document) Size() int {
	return d.File.Len()
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int {
	return d.File.Lines()
}

// IsStream reports whether the document was read from a stream and
// has no file to reload from.
func (d *Document) IsStream() bool {
	return d.stream
}

// HasExternalChanges reports whether the file on disk is newer than the
// content last read or verified.
func (d *Document) HasExternalChanges(diskModTime time.Time) bool {
	if d.stream || !diskModTime.After(d.ModTime) {
		return false
	}
	return diskModTime.UnixNano() > d.verified.Load()
}

// markVerified records that the file at diskModTime still has the
// document's content.
func (d *Document) markVerified(diskModTime time.Time) {
	ns := diskModTime.UnixNano()
	for {
		old := d.verified.Load()
		if ns <= old || d.verified.CompareAndSwap(old, ns) {
			return
		}
	}
}

// detectLanguage names the language of a file from its name and content.
// Compressed files are named by their inner extension.
func detectLanguage(path string, content []byte) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext == vfs.CompressedExt {
		name = name[:len(name)-len(ext)]
	}
	if vfs.IsBinary(content) {
		return ""
	}
	lang := enry.GetLanguage(name, content)
	if lang == enry.OtherLanguage {
		return ""
	}
	return lang
}
