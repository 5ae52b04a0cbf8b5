package textfile

import "fmt"

// Location describes the decoded state at a byte of a buffer.
type Location struct {
	// Line is the 1-based line number (1 + number of preceding line feeds).
	Line int

	// Column is the 1-based character column within the line.
	Column int

	// CharIndex is the 0-based index of the character covering the byte.
	CharIndex int

	// CharOff is the number of bytes of that character preceding the byte.
	// It is zero when the byte starts a character.
	CharOff int
}

// start is the location of the first byte of every buffer.
var start = Location{Line: 1, Column: 1}

// String returns the location as "line:column".
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Compare orders locations by line, then column.
// Returns -1 if l < other, 0 if equal, 1 if l > other.
func (l Location) Compare(other Location) int {
	return comparePos(l.Line, l.Column, other.Line, other.Column)
}

// Aligned reports whether the location starts a character.
func (l Location) Aligned() bool {
	return l.CharOff == 0
}

// advance moves past character r.
func (l *Location) advance(r rune) {
	l.CharIndex++
	if r == '\n' {
		l.Line++
		l.Column = 1
	} else {
		l.Column++
	}
}

func comparePos(line1, col1, line2, col2 int) int {
	switch {
	case line1 < line2:
		return -1
	case line1 > line2:
		return 1
	case col1 < col2:
		return -1
	case col1 > col2:
		return 1
	}
	return 0
}

// Position is a character-aligned byte offset together with its location.
type Position struct {
	Offset int
	Location
}

// LineSpan describes the bytes of one line.
type LineSpan struct {
	// Line is the 1-based line number.
	Line int

	// Start is the offset of the first byte of the line.
	Start int

	// End is the offset where the next line starts, or the buffer length for
	// the last line. The terminating line feed, if any, lies inside [Start, End).
	End int

	// Chars is the number of characters in the line, excluding the line feed.
	Chars int

	// Newline reports whether the line ends with a line feed.
	Newline bool
}

// Len returns the number of bytes in the span, including the line feed.
func (s LineSpan) Len() int {
	return s.End - s.Start
}

// ContentEnd returns the offset just past the last byte before the line feed.
func (s LineSpan) ContentEnd() int {
	if s.Newline {
		return s.End - 1
	}
	return s.End
}
