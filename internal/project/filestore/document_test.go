package filestore

import (
	"testing"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/dshills/textstore/internal/project/vfs"
)

func TestNewDocument(t *testing.T) {
	content := []byte("package main\n\nfunc main() {}\n")
	modTime := time.Now()

	doc := newDocument("/test/main.go", &vfs.Buffer{Data: content}, modTime, 16)

	if doc.Path != "/test/main.go" {
		t.Errorf("Path = %q, want %q", doc.Path, "/test/main.go")
	}
	if doc.Version != 1 {
		t.Errorf("Version = %d, want 1", doc.Version)
	}
	if doc.Hash != xxh3.Hash(content) {
		t.Errorf("Hash = %x, want %x", doc.Hash, xxh3.Hash(content))
	}
	if doc.Language != "Go" {
		t.Errorf("Language = %q, want %q", doc.Language, "Go")
	}
	if doc.Encoding != vfs.EncodingASCII || doc.LineEnding != vfs.LineEndingLF {
		t.Errorf("Encoding = %q, LineEnding = %q", doc.Encoding, doc.LineEnding)
	}
	if doc.LineCount() != 4 || doc.Size() != len(content) {
		t.Errorf("LineCount = %d, Size = %d", doc.LineCount(), doc.Size())
	}
	if doc.File.Stride() != 16 {
		t.Errorf("Stride = %d, want 16", doc.File.Stride())
	}
	if doc.File.Tag != doc {
		t.Error("File.Tag should point back to the document")
	}
	if !doc.ModTime.Equal(modTime) {
		t.Errorf("ModTime = %v, want %v", doc.ModTime, modTime)
	}
}

func TestNewDocument_KeepsBOM(t *testing.T) {
	content := []byte("\xEF\xBB\xBFhello")
	doc := newDocument("/test/file.txt", &vfs.Buffer{Data: content}, time.Now(), 16)

	if doc.Encoding != vfs.EncodingUTF8BOM {
		t.Errorf("Encoding = %v, want %v", doc.Encoding, vfs.EncodingUTF8BOM)
	}
	if doc.File.Len() != len(content) || doc.File.Chars() != 6 {
		t.Errorf("Len = %d, Chars = %d; the BOM is content", doc.File.Len(), doc.File.Chars())
	}
}

func TestDocument_Successor(t *testing.T) {
	doc := newDocument("/a.txt", &vfs.Buffer{Data: []byte("one")}, time.Now(), 16)
	later := doc.ModTime.Add(time.Second)
	next := doc.successor(&vfs.Buffer{Data: []byte("two\n")}, later, 16)

	if next.ID != doc.ID {
		t.Error("successor should keep the document ID")
	}
	if next.Version != 2 {
		t.Errorf("Version = %d, want 2", next.Version)
	}
	if !next.OpenedAt.Equal(doc.OpenedAt) || !next.ModTime.Equal(later) {
		t.Error("successor times not carried over")
	}
	if next.Hash == doc.Hash || next.File == doc.File {
		t.Error("successor should have its own content")
	}
}

func TestDocument_HasExternalChanges(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := newDocument("/a.txt", &vfs.Buffer{Data: []byte("x")}, base, 16)

	if doc.HasExternalChanges(base) {
		t.Error("same mod time is not a change")
	}
	if !doc.HasExternalChanges(base.Add(time.Second)) {
		t.Error("newer mod time should be a change")
	}

	doc.markVerified(base.Add(time.Second))
	if doc.HasExternalChanges(base.Add(time.Second)) {
		t.Error("verified mod time should not be a change")
	}
	doc.markVerified(base)
	if doc.HasExternalChanges(base.Add(time.Second)) {
		t.Error("older verification must not roll back")
	}
	if !doc.HasExternalChanges(base.Add(2 * time.Second)) {
		t.Error("mod time past verification should be a change")
	}

	doc.stream = true
	if doc.HasExternalChanges(base.Add(time.Hour)) {
		t.Error("stream documents never change externally")
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    string
	}{
		{"/src/main.go", "package main\n", "Go"},
		{"/src/app.py", "import os\n", "Python"},
		{"/notes/readme.txt", "plain\n", "Text"},
		{"/src/main.go.zst", "package main\n", "Go"},
		{"/bin/blob.go", "\x00\x01\x02", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := detectLanguage(tt.path, []byte(tt.content)); got != tt.want {
				t.Errorf("detectLanguage = %q, want %q", got, tt.want)
			}
		})
	}
}
