package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Section structs are snapshots. Mutating them does not modify the
// underlying configuration; use Config.Set to update values.

// Settings is the typed view of the whole configuration.
type Settings struct {
	Index    IndexConfig
	Registry RegistryConfig
	Files    FilesConfig
	Log      LogConfig
}

// IndexConfig controls the checkpoint index built for each file.
type IndexConfig struct {
	// Stride is the byte distance between checkpoints.
	Stride int
}

// RegistryConfig controls the open-file registry.
type RegistryConfig struct {
	// Grain is the capacity increment of the registry.
	Grain int
}

// FilesConfig controls how files are acquired and kept up to date.
type FilesConfig struct {
	// MaxFileSize is the largest file, in bytes, that will be opened.
	MaxFileSize int64

	// Mmap maps regular files instead of reading them.
	Mmap bool

	// Watch reloads open files when they change on disk.
	Watch bool

	// Debounce coalesces bursts of change events.
	Debounce time.Duration

	// AllowBinary permits opening files that look binary.
	AllowBinary bool

	// PollInterval is the change-check period used when file
	// notifications are unavailable.
	PollInterval time.Duration
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string
}

// minStride is the smallest stride that keeps every character sequence
// within one checkpoint interval.
const minStride = 4

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Settings returns the typed configuration. Type mismatches and values
// out of range are reported together.
func (c *Config) Settings() (Settings, error) {
	r := reader{c: c}
	s := Settings{
		Index: IndexConfig{
			Stride: int(r.readInt("index.stride")),
		},
		Registry: RegistryConfig{
			Grain: int(r.readInt("registry.grain")),
		},
		Files: FilesConfig{
			MaxFileSize:  r.readInt("files.maxFileSize"),
			Mmap:         r.readBool("files.mmap"),
			Watch:        r.readBool("files.watch"),
			Debounce:     r.readDuration("files.debounce"),
			AllowBinary:  r.readBool("files.allowBinary"),
			PollInterval: r.readDuration("files.pollInterval"),
		},
		Log: LogConfig{
			Level: r.readString("logging.level"),
		},
	}
	if len(r.errs) > 0 {
		return s, errors.Join(r.errs...)
	}
	return s, s.Validate()
}

// Validate checks every setting against its allowed range.
func (s Settings) Validate() error {
	var errs []error
	check := func(ok bool, path string, reason error, detail string, args ...any) {
		if !ok {
			errs = append(errs, &SettingError{Path: path, Reason: reason, Detail: fmt.Sprintf(detail, args...)})
		}
	}

	check(s.Index.Stride >= minStride, "index.stride", ErrOutOfRange,
		"%d is below the minimum of %d", s.Index.Stride, minStride)
	check(s.Registry.Grain >= 1, "registry.grain", ErrOutOfRange,
		"%d is not positive", s.Registry.Grain)
	check(s.Files.MaxFileSize > 0, "files.maxFileSize", ErrOutOfRange,
		"%d is not positive", s.Files.MaxFileSize)
	check(s.Files.Debounce >= 0, "files.debounce", ErrOutOfRange,
		"%v is negative", s.Files.Debounce)
	check(s.Files.PollInterval > 0, "files.pollInterval", ErrOutOfRange,
		"%v is not positive", s.Files.PollInterval)
	check(slices.Contains(logLevels, s.Log.Level), "logging.level", ErrUnknownValue,
		"%q is not one of debug, info, warn, error", s.Log.Level)

	return errors.Join(errs...)
}

// reader collects type errors while reading a section. Missing settings
// read as zero values and are caught by Validate where that matters.
type reader struct {
	c    *Config
	errs []error
}

func (r *reader) keep(err error) {
	if err != nil && !errors.Is(err, ErrSettingNotFound) {
		r.errs = append(r.errs, err)
	}
}

func (r *reader) readInt(path string) int64 {
	v, err := r.c.GetInt(path)
	r.keep(err)
	return v
}

func (r *reader) readBool(path string) bool {
	v, err := r.c.GetBool(path)
	r.keep(err)
	return v
}

func (r *reader) readString(path string) string {
	v, err := r.c.GetString(path)
	r.keep(err)
	return v
}

func (r *reader) readDuration(path string) time.Duration {
	v, err := r.c.GetDuration(path)
	r.keep(err)
	return v
}
