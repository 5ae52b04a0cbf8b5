// Package codec decodes and encodes single characters of UTF-8 text.
//
// Decoding is deliberately tolerant: every non-empty input yields a character
// and consumes at least one byte, so callers scanning a buffer always make
// forward progress. Over-long encodings are accepted and decoded by value.
// Bytes that cannot start a sequence, and sequences that are cut short, are
// read as a single Windows-1252 byte.
package codec
