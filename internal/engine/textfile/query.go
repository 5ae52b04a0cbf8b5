package textfile

// Locate returns the location of the byte at off.
// Returns ErrBeforeStart if off is negative or the buffer is empty, and
// ErrPastEnd if off is not less than Len.
func (f *TextFile) Locate(off int) (Location, error) {
	if off < 0 || len(f.data) == 0 {
		return Location{}, ErrBeforeStart
	}
	if off >= len(f.data) {
		return Location{}, ErrPastEnd
	}

	// Checkpoints are byte-uniform, so the nearest one is found directly.
	s := f.scannerAt(off / f.idx.stride)
	for s.next() {
		if s.off+s.size > off {
			loc := s.loc
			loc.CharOff = off - s.off
			return loc, nil
		}
		s.skip()
	}
	panic("textfile: offset inside buffer was not reached")
}

// LocatePtr returns the location of the byte p points to.
// See Offset for how p is interpreted.
func (f *TextFile) LocatePtr(p []byte) (Location, error) {
	off, err := f.Offset(p)
	if err != nil {
		return Location{}, err
	}
	return f.Locate(off)
}

// CharAt returns the position of the character with the given 0-based index.
// Returns false if index is out of range.
func (f *TextFile) CharAt(index int) (Position, bool) {
	if index < 0 || index >= f.chars {
		return Position{}, false
	}

	i := f.idx.last(func(cp Location) bool {
		return cp.CharIndex <= index
	})
	s := f.scannerAt(i)
	for s.loc.CharIndex < index {
		if !s.next() {
			panic("textfile: character index inside buffer was not reached")
		}
		s.skip()
	}
	return Position{Offset: s.off, Location: s.loc}, true
}

// LocatePos returns the position of the character at the 1-based line and
// column. The line feed ending a line is not part of it, so a column past
// the last character of the line is not found.
func (f *TextFile) LocatePos(line, col int) (Position, bool) {
	if line < 1 || line > f.lines || col < 1 {
		return Position{}, false
	}

	i := f.idx.last(func(cp Location) bool {
		return comparePos(cp.Line, cp.Column, line, col) <= 0
	})
	s := f.scannerAt(i)
	for s.next() {
		if s.loc.Line > line {
			break
		}
		if s.loc.Line == line && s.loc.Column == col {
			if s.r == '\n' {
				break
			}
			return Position{Offset: s.off, Location: s.loc}, true
		}
		s.skip()
	}
	return Position{}, false
}

// Line returns the byte range of the 1-based line.
// Returns false if line is out of range.
func (f *TextFile) Line(line int) (LineSpan, bool) {
	if line < 1 || line > f.lines {
		return LineSpan{}, false
	}

	from := f.lineStart(line)
	to := Position{Offset: len(f.data), Location: Location{Line: f.lines, CharIndex: f.chars}}
	if line < f.lines {
		to = f.lineStart(line + 1)
	}

	span := LineSpan{
		Line:    line,
		Start:   from.Offset,
		End:     to.Offset,
		Chars:   to.CharIndex - from.CharIndex,
		Newline: line < f.lines,
	}
	if span.Newline {
		span.Chars--
	}
	return span, true
}

// LineBytes returns the content of the 1-based line without its line feed,
// or nil if line is out of range.
func (f *TextFile) LineBytes(line int) []byte {
	span, ok := f.Line(line)
	if !ok {
		return nil
	}
	return f.data[span.Start:span.ContentEnd():span.ContentEnd()]
}

// lineStart returns the position where line begins. line must be in
// [1, Lines]. The last line may start at the end of the buffer.
func (f *TextFile) lineStart(line int) Position {
	if line == 1 {
		return Position{Location: start}
	}

	i := f.idx.last(func(cp Location) bool {
		return comparePos(cp.Line, cp.Column, line, 1) <= 0
	})
	s := f.scannerAt(i)
	for s.loc.Line < line {
		if !s.next() {
			panic("textfile: line inside buffer was not reached")
		}
		s.skip()
	}
	return Position{Offset: s.off, Location: s.loc}
}

// scannerAt returns a scanner positioned at the character covering
// checkpoint i, or at the start of the buffer when i is negative.
func (f *TextFile) scannerAt(i int) scanner {
	s := scanner{data: f.data, loc: start}
	if i >= 0 {
		s.off, s.loc = f.idx.anchor(i)
	}
	return s
}
