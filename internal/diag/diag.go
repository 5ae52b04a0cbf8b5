// Package diag renders messages that point at a location in a text file:
// a "path:line:col: severity: message" header, the source line, and a
// caret under the addressed character.
package diag

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/dshills/textstore/internal/engine/codec"
	"github.com/dshills/textstore/internal/engine/textfile"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

func (s Severity) color() string {
	switch s {
	case SeverityError:
		return "\x1b[1;31m"
	case SeverityWarning:
		return "\x1b[1;33m"
	default:
		return "\x1b[1;36m"
	}
}

const colorReset = "\x1b[0m"

// Diagnostic is a message attached to a line and column.
type Diagnostic struct {
	Path     string
	Line     int
	Column   int
	Severity Severity
	Message  string

	// Source is the text of the line without its terminator. When empty,
	// only the header is rendered.
	Source []byte
}

// FromLocation builds a diagnostic for loc in f, copying the source line so
// the diagnostic stays valid after f is closed.
func FromLocation(path string, f *textfile.TextFile, loc textfile.Location, sev Severity, msg string) Diagnostic {
	return Diagnostic{
		Path:     path,
		Line:     loc.Line,
		Column:   loc.Column,
		Severity: sev,
		Message:  msg,
		Source:   bytes.Clone(bytes.TrimSuffix(f.LineBytes(loc.Line), []byte{'\r'})),
	}
}

// FromPosition is FromLocation for a query result.
func FromPosition(path string, f *textfile.TextFile, pos textfile.Position, sev Severity, msg string) Diagnostic {
	return FromLocation(path, f, pos.Location, sev, msg)
}

// Options controls rendering.
type Options struct {
	// MaxWidth bounds the rendered source line in terminal cells.
	// Zero means unlimited.
	MaxWidth int

	// TabWidth is the tab stop distance. Default 8.
	TabWidth int

	// Color enables ANSI colors.
	Color bool
}

// Header returns the first line of the rendering, without a newline.
func (d Diagnostic) Header() string {
	return d.header(d.Severity.String())
}

func (d Diagnostic) header(severity string) string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Line, d.Column, severity, d.Message)
}

// Format renders d.
func Format(d Diagnostic, opts Options) string {
	var sb strings.Builder
	sev := d.Severity.String()
	if opts.Color {
		sev = d.Severity.color() + sev + colorReset
	}
	sb.WriteString(d.header(sev))
	sb.WriteByte('\n')
	if len(d.Source) == 0 && d.Column <= 1 {
		return sb.String()
	}

	line, caret := layout(d.Source, d.Column, opts)
	sb.WriteString("    | ")
	sb.WriteString(line)
	sb.WriteString("\n    | ")
	sb.WriteString(strings.Repeat(" ", caret))
	if opts.Color {
		sb.WriteString(d.Severity.color() + "^" + colorReset)
	} else {
		sb.WriteByte('^')
	}
	sb.WriteByte('\n')
	return sb.String()
}

// cluster is one grapheme of a source line as displayed.
type cluster struct {
	text  string
	chars int // characters covered
	width int // terminal cells
}

// layout renders src for display and returns the caret's cell offset
// under the character at column (1-based). Columns past the end put the
// caret just after the last cell.
func layout(src []byte, column int, opts Options) (string, int) {
	tabWidth := opts.TabWidth
	if tabWidth <= 0 {
		tabWidth = 8
	}

	clusters := split(src, tabWidth)

	caretX, x, chars := -1, 0, 0
	for _, c := range clusters {
		if caretX < 0 && chars+c.chars >= column {
			caretX = x
		}
		chars += c.chars
		x += c.width
	}
	if caretX < 0 {
		caretX = x
	}

	if opts.MaxWidth <= 0 || x <= opts.MaxWidth {
		return join(clusters), caretX
	}

	// Drop clusters from the left until the caret sits in the first half.
	const ellipsis = "…"
	start, startX := 0, 0
	for start < len(clusters) && caretX-startX > opts.MaxWidth/2 {
		startX += clusters[start].width
		start++
	}
	shown := join(clusters[start:])
	offset := caretX - startX
	if start > 0 {
		shown = ellipsis + shown
		offset += runewidth.StringWidth(ellipsis)
	}
	return runewidth.Truncate(shown, opts.MaxWidth, ellipsis), offset
}

// split decodes src the way textfile counts characters, then groups the
// characters into graphemes. Tabs expand to spaces.
func split(src []byte, tabWidth int) []cluster {
	runes := make([]rune, 0, len(src))
	for p := src; len(p) > 0; {
		r, n := codec.Decode(p)
		runes = append(runes, r)
		p = p[n:]
	}

	var out []cluster
	x := 0
	state := -1
	rest := string(runes)
	for len(rest) > 0 {
		var g string
		g, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		c := cluster{text: g, chars: len([]rune(g))}
		switch {
		case g == "\t":
			c.width = tabWidth - x%tabWidth
			c.text = strings.Repeat(" ", c.width)
		default:
			c.width = cellWidth(g)
			if c.width == 0 && g[0] < 0x20 {
				c.text, c.width = "?", 1
			}
		}
		x += c.width
		out = append(out, c)
	}
	return out
}

func cellWidth(g string) int {
	w := runewidth.StringWidth(g)
	if w <= 0 {
		w = max(uniseg.StringWidth(g), 0)
	}
	return w
}

func join(clusters []cluster) string {
	var sb strings.Builder
	for _, c := range clusters {
		sb.WriteString(c.text)
	}
	return sb.String()
}

// Bag collects diagnostics.
type Bag struct {
	Items []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.Items = append(b.Items, d)
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int {
	return len(b.Items)
}

// HasErrors reports whether any diagnostic is an error.
func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.Items, func(d Diagnostic) bool {
		return d.Severity == SeverityError
	})
}

// Print writes the diagnostics to w ordered by path, line and column.
func (b *Bag) Print(w io.Writer, opts Options) error {
	if b == nil || len(b.Items) == 0 {
		return nil
	}
	items := slices.Clone(b.Items)
	slices.SortStableFunc(items, func(a, b Diagnostic) int {
		return cmp.Or(
			strings.Compare(a.Path, b.Path),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
		)
	})
	for _, d := range items {
		if _, err := io.WriteString(w, Format(d, opts)); err != nil {
			return err
		}
	}
	return nil
}
