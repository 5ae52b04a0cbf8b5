package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/textstore/internal/diag"
	"github.com/dshills/textstore/internal/engine/textfile"
	"github.com/dshills/textstore/internal/project/filestore"
)

// QueryKind selects how a query addresses a file.
type QueryKind int

const (
	// QueryOffset locates a byte offset.
	QueryOffset QueryKind = iota
	// QueryChar finds the character with a 0-based index.
	QueryChar
	// QueryPos finds the character at a 1-based line and column.
	QueryPos
	// QueryLine describes a 1-based line.
	QueryLine
)

// String returns the flag name of the kind.
func (k QueryKind) String() string {
	switch k {
	case QueryOffset:
		return "at"
	case QueryChar:
		return "char"
	case QueryPos:
		return "pos"
	case QueryLine:
		return "line"
	default:
		return "unknown"
	}
}

// Query addresses a location in a file.
type Query struct {
	Kind QueryKind
	Path string

	// N is the offset, character index or line. Col is used by QueryPos.
	N   int
	Col int
}

// String returns the query in the form ParseQuery accepts.
func (q Query) String() string {
	if q.Kind == QueryPos {
		return fmt.Sprintf("%s:%d:%d", q.Path, q.N, q.Col)
	}
	return fmt.Sprintf("%s:%d", q.Path, q.N)
}

// ParseQuery parses "path:n", or "path:line:col" for QueryPos.
// Numbers are taken from the end so paths may contain colons.
func ParseQuery(kind QueryKind, s string) (Query, error) {
	want := 1
	if kind == QueryPos {
		want = 2
	}

	q := Query{Kind: kind}
	nums := make([]int, want)
	rest := s
	for i := want - 1; i >= 0; i-- {
		idx := strings.LastIndexByte(rest, ':')
		if idx < 0 {
			return Query{}, fmt.Errorf("%w: %q: want %s", ErrInvalidQuery, s, queryForm(kind))
		}
		n, err := strconv.Atoi(rest[idx+1:])
		if err != nil {
			return Query{}, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, s, err)
		}
		nums[i] = n
		rest = rest[:idx]
	}
	if rest == "" {
		return Query{}, fmt.Errorf("%w: %q: missing path", ErrInvalidQuery, s)
	}

	q.Path = rest
	q.N = nums[0]
	if want == 2 {
		q.Col = nums[1]
	}
	return q, nil
}

func queryForm(kind QueryKind) string {
	switch kind {
	case QueryPos:
		return "path:line:col"
	case QueryChar:
		return "path:index"
	case QueryLine:
		return "path:line"
	default:
		return "path:offset"
	}
}

// Result is the answer to a query.
type Result struct {
	Path  string `json:"path"`
	Query string `json:"query"`

	// Offset is the byte offset of the character found. For QueryOffset
	// it is the queried byte, which may lie inside the character.
	Offset    int `json:"offset"`
	Line      int `json:"line"`
	Column    int `json:"column"`
	CharIndex int `json:"charIndex"`
	CharOff   int `json:"charOff,omitempty"`

	// Line queries describe the whole line.
	End     int    `json:"end,omitempty"`
	Chars   int    `json:"chars,omitempty"`
	Newline bool   `json:"newline,omitempty"`
	Text    string `json:"text,omitempty"`

	note *diag.Diagnostic
}

// Location returns the result as a textfile location.
func (r Result) Location() textfile.Location {
	return textfile.Location{Line: r.Line, Column: r.Column, CharIndex: r.CharIndex, CharOff: r.CharOff}
}

// Query runs q, opening its file if needed. Queries that address nothing
// in the file return an error matching ErrOutOfRange.
func (app *Application) Query(ctx context.Context, q Query) (Result, error) {
	doc, done, err := app.borrow(ctx, q.Path)
	if err != nil {
		return Result{}, err
	}
	defer done()

	timer := StartTimer()
	res, err := runQuery(doc, q)
	app.metrics.RecordQuery(timer.Elapsed(), err == nil)
	if err != nil {
		return Result{}, opError(OpQuery, q.String(), err)
	}
	return res, nil
}

func runQuery(doc *filestore.Document, q Query) (Result, error) {
	f := doc.File
	res := Result{Path: doc.Path, Query: q.Kind.String()}

	switch q.Kind {
	case QueryOffset:
		loc, err := f.Locate(q.N)
		if err != nil {
			return Result{}, errors.Join(ErrOutOfRange, err)
		}
		res.Offset = q.N
		res.setLocation(loc)

	case QueryChar:
		pos, ok := f.CharAt(q.N)
		if !ok {
			return Result{}, fmt.Errorf("%w: file has %d characters", ErrOutOfRange, f.Chars())
		}
		res.Offset = pos.Offset
		res.setLocation(pos.Location)

	case QueryPos:
		pos, ok := f.LocatePos(q.N, q.Col)
		if !ok {
			return Result{}, fmt.Errorf("%w: no character at %d:%d", ErrOutOfRange, q.N, q.Col)
		}
		res.Offset = pos.Offset
		res.setLocation(pos.Location)

	case QueryLine:
		span, ok := f.Line(q.N)
		if !ok {
			return Result{}, fmt.Errorf("%w: file has %d lines", ErrOutOfRange, f.Lines())
		}
		res.Offset = span.Start
		res.Line = span.Line
		res.Column = 1
		res.End = span.End
		res.Chars = span.Chars
		res.Newline = span.Newline
		res.Text = string(f.Slice(span.Start, span.ContentEnd()))
		if span.Start < f.Len() {
			if loc, err := f.Locate(span.Start); err == nil {
				res.CharIndex = loc.CharIndex
			}
		} else {
			res.CharIndex = f.Chars()
		}

	default:
		return Result{}, fmt.Errorf("%w: kind %d", ErrInvalidQuery, q.Kind)
	}
	note := diag.FromLocation(res.Path, f, res.Location(), diag.SeverityNote, res.describe())
	res.note = &note
	return res, nil
}

func (r *Result) setLocation(loc textfile.Location) {
	r.Line = loc.Line
	r.Column = loc.Column
	r.CharIndex = loc.CharIndex
	r.CharOff = loc.CharOff
}

// Diagnostic renders a result as a note pointing at its location. The
// source line is captured when the query runs.
func (r Result) Diagnostic() diag.Diagnostic {
	if r.note == nil {
		return diag.Diagnostic{Path: r.Path, Line: r.Line, Column: r.Column, Severity: diag.SeverityNote, Message: r.describe()}
	}
	return *r.note
}

func (r Result) describe() string {
	if r.Query == QueryLine.String() {
		return fmt.Sprintf("line %d: bytes [%d, %d), %d characters", r.Line, r.Offset, r.End, r.Chars)
	}
	msg := fmt.Sprintf("offset %d, character %d", r.Offset, r.CharIndex)
	if r.CharOff > 0 {
		msg += fmt.Sprintf(" (byte %d of the character)", r.CharOff)
	}
	return msg
}
