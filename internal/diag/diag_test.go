package diag

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/dshills/textstore/internal/engine/textfile"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityError, "error"},
		{SeverityWarning, "warning"},
		{SeverityNote, "note"},
		{Severity(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.want {
			t.Errorf("Severity(%d) = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestFormatCaret(t *testing.T) {
	tests := []struct {
		name   string
		source string
		column int
		line   string
		caret  string
	}{
		{"ascii", "hello world", 7, "hello world", "      ^"},
		{"first column", "abc", 1, "abc", "^"},
		{"past end", "abc", 4, "abc", "   ^"},
		{"two-byte chars", "héllo", 3, "héllo", "  ^"},
		{"wide chars", "日本語です", 3, "日本語です", "    ^"},
		{"tab", "\tx", 2, "        x", "        ^"},
		{"combining mark", "e\u0301x", 3, "e\u0301x", " ^"},
		{"invalid byte", "a\xe9b", 3, "aéb", "  ^"},
		{"control byte", "a\x01b", 3, "a?b", "  ^"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Diagnostic{Path: "f.txt", Line: 2, Column: tt.column, Message: "msg", Source: []byte(tt.source)}
			got := Format(d, Options{})
			want := "f.txt:2:" + strconv.Itoa(tt.column) + ": error: msg\n" +
				"    | " + tt.line + "\n" +
				"    | " + tt.caret + "\n"
			if got != want {
				t.Errorf("Format =\n%s\nwant\n%s", got, want)
			}
		})
	}
}

func TestFormatHeaderOnly(t *testing.T) {
	d := Diagnostic{Path: "a", Line: 1, Column: 1, Severity: SeverityNote, Message: "empty"}
	if got := Format(d, Options{}); got != "a:1:1: note: empty\n" {
		t.Errorf("Format = %q", got)
	}
	if d.Header() != "a:1:1: note: empty" {
		t.Errorf("Header = %q", d.Header())
	}
}

func TestFormatColor(t *testing.T) {
	d := Diagnostic{Path: "a", Line: 1, Column: 1, Message: "m", Source: []byte("x")}
	got := Format(d, Options{Color: true})
	if !strings.Contains(got, "\x1b[1;31merror\x1b[0m") || !strings.Contains(got, "\x1b[1;31m^\x1b[0m") {
		t.Errorf("Format = %q", got)
	}
}

func TestFormatTruncates(t *testing.T) {
	src := strings.Repeat("abcdefghij", 10)

	// Caret near the start: the tail is cut.
	line, caret := layout([]byte(src), 5, Options{MaxWidth: 20})
	if line != src[:19]+"…" || caret != 4 {
		t.Errorf("layout = %q, %d", line, caret)
	}

	// Caret far right: the head is dropped and the caret stays visible.
	line, caret = layout([]byte(src), 80, Options{MaxWidth: 20})
	if !strings.HasPrefix(line, "…") || caret >= 20 {
		t.Errorf("layout = %q, %d", line, caret)
	}
	runes := []rune(line)
	if runes[caret] != rune(src[79]) {
		t.Errorf("caret under %q, want %q", runes[caret], src[79])
	}
}

func TestFromLocation(t *testing.T) {
	f := textfile.Load([]byte("first\r\nsecond línea\nthird"))
	pos, ok := f.LocatePos(2, 9)
	if !ok {
		t.Fatal("LocatePos failed")
	}

	d := FromPosition("doc.txt", f, pos, SeverityWarning, "here")
	if d.Line != 2 || d.Column != 9 || string(d.Source) != "second línea" {
		t.Errorf("FromPosition = %+v", d)
	}

	loc, _ := f.Locate(0)
	d = FromLocation("doc.txt", f, loc, SeverityError, "start")
	if string(d.Source) != "first" {
		t.Errorf("Source = %q, want CR trimmed", d.Source)
	}

	// The source line is a copy that outlives the file.
	f.Close()
	if string(d.Source) != "first" {
		t.Errorf("Source after Close = %q", d.Source)
	}
}

func TestFormatFirstLineIsHeader(t *testing.T) {
	tests := []Diagnostic{
		{Path: "a.txt", Line: 3, Column: 7, Severity: SeverityError, Message: "bad", Source: []byte("0123456789")},
		{Path: "dir/b.go", Line: 1, Column: 1, Severity: SeverityWarning, Message: "w"},
		{Path: "c", Line: 12, Column: 2, Severity: SeverityNote, Message: "x: y", Source: []byte("ab")},
	}
	for _, d := range tests {
		t.Run(d.Path, func(t *testing.T) {
			first, _, _ := strings.Cut(Format(d, Options{}), "\n")
			if first != d.Header() {
				t.Errorf("first line = %q, Header = %q", first, d.Header())
			}

			colored, _, _ := strings.Cut(Format(d, Options{Color: true}), "\n")
			plain := strings.ReplaceAll(colored, d.Severity.color(), "")
			plain = strings.ReplaceAll(plain, colorReset, "")
			if plain != d.Header() {
				t.Errorf("colored first line = %q, want Header %q once colors are removed", colored, d.Header())
			}
		})
	}
}

func TestBagPrint(t *testing.T) {
	var b Bag
	b.Add(Diagnostic{Path: "b", Line: 1, Column: 1, Severity: SeverityWarning, Message: "w"})
	b.Add(Diagnostic{Path: "a", Line: 3, Column: 1, Severity: SeverityNote, Message: "n"})
	b.Add(Diagnostic{Path: "a", Line: 1, Column: 2, Severity: SeverityError, Message: "e"})

	if b.Len() != 3 || !b.HasErrors() {
		t.Errorf("Len = %d, HasErrors = %v", b.Len(), b.HasErrors())
	}

	var buf bytes.Buffer
	if err := b.Print(&buf, Options{}); err != nil {
		t.Fatal(err)
	}
	want := "a:1:2: error: e\n    | \n    | ^\na:3:1: note: n\nb:1:1: warning: w\n"
	if buf.String() != want {
		t.Errorf("Print =\n%q\nwant\n%q", buf.String(), want)
	}
}
