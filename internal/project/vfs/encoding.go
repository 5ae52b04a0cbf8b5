package vfs

import (
	"bytes"
	"unicode/utf8"
)

// Encoding names the byte encoding a buffer appears to use.
type Encoding string

const (
	// EncodingASCII is 7-bit content.
	EncodingASCII Encoding = "ascii"

	// EncodingUTF8 is well-formed UTF-8.
	EncodingUTF8 Encoding = "utf-8"

	// EncodingUTF8BOM is UTF-8 led by a byte order mark. The mark is kept
	// in the buffer and counts as the first character.
	EncodingUTF8BOM Encoding = "utf-8-bom"

	// EncodingUTF16LE is UTF-16 little endian, detected by its mark only.
	EncodingUTF16LE Encoding = "utf-16le"

	// EncodingUTF16BE is UTF-16 big endian, detected by its mark only.
	EncodingUTF16BE Encoding = "utf-16be"

	// EncodingLenient is content with malformed UTF-8. Bad bytes decode
	// one at a time through the Windows-1252 table.
	EncodingLenient Encoding = "windows-1252"
)

// LineEnding names the line terminator style found in a buffer. Only LF
// delimits lines; a CR before it is the last character of its line.
type LineEnding string

const (
	LineEndingNone  LineEnding = "none"
	LineEndingLF    LineEnding = "lf"
	LineEndingCRLF  LineEnding = "crlf"
	LineEndingMixed LineEnding = "mixed"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// binarySample bounds how much of a buffer IsBinary inspects.
const binarySample = 8 << 10

// DetectEncoding classifies content by byte order mark, then by
// validating it as UTF-8.
func DetectEncoding(content []byte) Encoding {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return EncodingUTF8BOM
	case bytes.HasPrefix(content, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(content, bomUTF16BE):
		return EncodingUTF16BE
	}
	if isASCII(content) {
		return EncodingASCII
	}
	if utf8.Valid(content) {
		return EncodingUTF8
	}
	return EncodingLenient
}

// DetectLineEnding reports whether LF-terminated lines carry a CR.
// Content without any LF reports LineEndingNone.
func DetectLineEnding(content []byte) LineEnding {
	var lf, crlf int
	for i, b := range content {
		if b != '\n' {
			continue
		}
		if i > 0 && content[i-1] == '\r' {
			crlf++
		} else {
			lf++
		}
	}
	switch {
	case lf == 0 && crlf == 0:
		return LineEndingNone
	case crlf == 0:
		return LineEndingLF
	case lf == 0:
		return LineEndingCRLF
	default:
		return LineEndingMixed
	}
}

// IsBinary reports whether content looks like binary data: a NUL byte in
// the leading sample, or more than 10% control bytes other than tab,
// LF, CR and form feed.
func IsBinary(content []byte) bool {
	sample := content[:min(len(content), binarySample)]
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	control := 0
	for _, b := range sample {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			control++
		}
	}
	return control*10 > len(sample)
}

func isASCII(content []byte) bool {
	for _, b := range content {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// EncodingInfo holds what DetectEncodingInfo found about a buffer.
type EncodingInfo struct {
	Encoding   Encoding
	LineEnding LineEnding
	HasBOM     bool
	IsBinary   bool
}

// DetectEncodingInfo runs every detector over content. Binary content
// skips encoding and line ending detection.
func DetectEncodingInfo(content []byte) EncodingInfo {
	if IsBinary(content) {
		return EncodingInfo{IsBinary: true}
	}
	enc := DetectEncoding(content)
	return EncodingInfo{
		Encoding:   enc,
		LineEnding: DetectLineEnding(content),
		HasBOM:     enc == EncodingUTF8BOM || enc == EncodingUTF16LE || enc == EncodingUTF16BE,
	}
}
