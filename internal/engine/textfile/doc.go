// Package textfile provides position lookups over large, immutable UTF-8 buffers.
//
// A TextFile wraps a byte buffer together with a sparse checkpoint index built
// in a single pass at load time. Every stride bytes (2048 by default) the index
// records the line, column and character index of the character covering that
// byte. Queries start from the nearest checkpoint and re-decode at most one
// stride of text, so their cost does not depend on the size of the buffer:
//
//	f := textfile.Load(data)
//	loc, err := f.Locate(1 << 20)        // byte offset -> line/column/char index
//	pos, ok := f.CharAt(12345)           // character index -> byte offset
//	pos, ok = f.LocatePos(12, 7)         // line/column -> byte offset
//	span, ok := f.Line(12)               // line -> byte range
//
// The buffer is never modified. Queries are safe for concurrent use once Load
// has returned; Close must not run concurrently with queries.
package textfile
