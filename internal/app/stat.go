package app

import (
	"fmt"
	"time"

	"github.com/dshills/textstore/internal/project/filestore"
)

// DocumentStat describes an open document.
type DocumentStat struct {
	Path        string    `json:"path"`
	ID          string    `json:"id"`
	Version     int64     `json:"version"`
	Size        int       `json:"size"`
	Chars       int       `json:"chars"`
	Lines       int       `json:"lines"`
	Stride      int       `json:"stride"`
	Checkpoints int       `json:"checkpoints"`
	Hash        string    `json:"hash"`
	Language    string    `json:"language,omitempty"`
	Encoding    string    `json:"encoding"`
	LineEnding  string    `json:"lineEnding"`
	Mapped      bool      `json:"mapped"`
	Compressed  bool      `json:"compressed"`
	ModTime     time.Time `json:"modTime"`
}

// Describe summarizes doc.
func Describe(doc *filestore.Document) DocumentStat {
	f := doc.File
	return DocumentStat{
		Path:        doc.Path,
		ID:          doc.ID.String(),
		Version:     doc.Version,
		Size:        f.Len(),
		Chars:       f.Chars(),
		Lines:       f.Lines(),
		Stride:      f.Stride(),
		Checkpoints: len(f.Checkpoints()),
		Hash:        fmt.Sprintf("%016x", doc.Hash),
		Language:    doc.Language,
		Encoding:    string(doc.Encoding),
		LineEnding:  string(doc.LineEnding),
		Mapped:      doc.Mapped,
		Compressed:  doc.Compressed,
		ModTime:     doc.ModTime,
	}
}

// Stats is the state of the whole application.
type Stats struct {
	Documents []DocumentStat  `json:"documents"`
	Store     filestore.Stats `json:"store"`
	Metrics   MetricsSnapshot `json:"metrics"`
}

// Stats returns a summary of every open document, the store and the
// application metrics.
func (app *Application) Stats() Stats {
	docs := app.store.Documents()
	stats := Stats{
		Documents: make([]DocumentStat, 0, len(docs)),
		Store:     app.store.GetStats(),
		Metrics:   app.metrics.Snapshot(),
	}
	for _, doc := range docs {
		held, done, ok := app.store.Borrow(doc.Path)
		if !ok {
			continue
		}
		stats.Documents = append(stats.Documents, Describe(held))
		done()
	}
	return stats
}
