package textfile

import (
	"sort"

	"github.com/dshills/textstore/internal/engine/codec"
)

// index is the checkpoint index of a buffer.
// checkpoints[i] is the location of byte i*stride.
type index struct {
	stride      int
	checkpoints []Location
}

// totals are the counts derived from the full scan.
type totals struct {
	chars int
	lines int
}

// buildIndex scans data once and records a checkpoint every stride bytes.
func buildIndex(data []byte, stride int) (index, totals) {
	idx := index{stride: stride}
	if len(data) > 0 {
		idx.checkpoints = make([]Location, 0, (len(data)+stride-1)/stride)
	}

	loc := start
	next := 0
	for off := 0; off < len(data); {
		r, size := codec.Decode(data[off:])
		end := off + size

		// Boundaries that fall inside this character share its location.
		for ; next < end; next += stride {
			cp := loc
			cp.CharOff = next - off
			idx.checkpoints = append(idx.checkpoints, cp)
		}

		loc.advance(r)
		off = end
	}

	return idx, totals{chars: loc.CharIndex, lines: loc.Line}
}

// anchor returns the character-aligned offset and location of checkpoint i.
func (idx *index) anchor(i int) (int, Location) {
	cp := idx.checkpoints[i]
	off := i*idx.stride - cp.CharOff
	cp.CharOff = 0
	return off, cp
}

// last returns the index of the last checkpoint satisfying ok, or -1.
// ok must hold for a prefix of the checkpoints and fail for the rest.
func (idx *index) last(ok func(cp Location) bool) int {
	return searchLast(len(idx.checkpoints), func(i int) bool {
		return ok(idx.checkpoints[i])
	})
}

// searchLast returns the largest i in [0, n) for which ok(i) is true, or -1.
// ok must be true for a prefix of [0, n) and false afterwards.
func searchLast(n int, ok func(i int) bool) int {
	return sort.Search(n, func(i int) bool { return !ok(i) }) - 1
}

// scanner decodes characters forward from a character-aligned offset.
type scanner struct {
	data []byte
	off  int
	loc  Location
	r    rune
	size int
}

// next decodes the character at the current offset.
// It returns false at the end of the buffer.
func (s *scanner) next() bool {
	if s.off >= len(s.data) {
		return false
	}
	s.r, s.size = codec.Decode(s.data[s.off:])
	return true
}

// skip moves past the character decoded by next.
func (s *scanner) skip() {
	s.loc.advance(s.r)
	s.off += s.size
}
