// Package loader reads configuration sources into nested maps.
//
// Files are TOML or YAML, chosen by extension. Environment variables with
// a prefix are mapped onto dotted setting paths. Sources are combined with
// Merge, later sources taking precedence.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// FileSystem is where configuration files are read from.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// DefaultFS reads the operating system's file system.
func DefaultFS() FileSystem { return osFS{} }

// Format is a configuration file syntax.
type Format struct {
	Name string
	Exts []string

	decode   func(data []byte) (map[string]any, error)
	position func(err error) (line, col int)
}

// Formats lists the supported syntaxes.
var Formats = []Format{TOML, YAML}

// FormatOf picks the format by the extension of path.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range Formats {
		if slices.Contains(f.Exts, ext) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
}

// Parse decodes data. source names the data in errors.
func (f Format) Parse(source string, data []byte) (map[string]any, error) {
	m, err := f.decode(data)
	if err != nil {
		perr := &ParseError{Source: source, Format: f.Name, Err: err}
		perr.Line, perr.Column = f.position(err)
		return nil, perr
	}
	return m, nil
}

// File is a configuration file in a known format.
type File struct {
	FS     FileSystem
	Path   string
	Format Format
}

// ForPath returns the file at path with the format its extension names.
func ForPath(fsys FileSystem, path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	return &File{FS: fsys, Path: path, Format: format}, nil
}

// Load reads and parses the file. A missing file yields nil, nil.
func (f *File) Load() (map[string]any, error) {
	data, err := f.FS.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", f.Path, err)
	}
	return f.Format.Parse(f.Path, data)
}

// ParseError is a syntax error in a configuration source. Line and
// Column are 1-based, or zero when the decoder did not report them.
type ParseError struct {
	Source string
	Format string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	loc := e.Source
	if e.Line > 0 {
		loc += ":" + strconv.Itoa(e.Line)
		if e.Column > 0 {
			loc += ":" + strconv.Itoa(e.Column)
		}
	}
	return fmt.Sprintf("%s: invalid %s: %v", loc, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Merge combines layers into a new map, later layers winning. Nested
// maps are merged key by key; any other value replaces what was there.
// The layers are not modified and share no maps with the result.
func Merge(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		target, ok := dst[k].(map[string]any)
		if !ok {
			target = make(map[string]any, len(sub))
			dst[k] = target
		}
		mergeInto(target, sub)
	}
}
