package config

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dshills/textstore/internal/config/loader"
)

// DefaultEnvPrefix is the prefix of environment variables read by Load.
const DefaultEnvPrefix = "TEXTSTORE_"

// Config provides unified access to the textstore configuration.
// It merges defaults, an optional config file, the environment and
// explicit overrides into one view.
type Config struct {
	mu sync.RWMutex

	fs         loader.FileSystem
	path       string
	envPrefix  string
	envMapping map[string]string

	defaults  map[string]any
	file      map[string]any
	env       map[string]any
	overrides map[string]any

	merged map[string]any
}

// Option configures a Config instance.
type Option func(*Config)

// WithFile sets the configuration file. Its extension selects the format.
func WithFile(path string) Option {
	return func(c *Config) {
		c.path = path
	}
}

// WithFS sets the file system used to read the configuration file.
func WithFS(fs loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fs
	}
}

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables the environment layer.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithEnvMapping maps individual environment variables to setting paths.
func WithEnvMapping(mapping map[string]string) Option {
	return func(c *Config) {
		c.envMapping = mapping
	}
}

// New creates a new Config instance with the given options.
// Until Load is called only the defaults are visible.
func New(opts ...Option) *Config {
	c := &Config{
		fs:        loader.DefaultFS(),
		envPrefix: DefaultEnvPrefix,
		defaults:  defaultConfig(),
		overrides: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.merge()
	return c
}

// Load loads configuration from all sources.
// A missing config file is not an error.
func (c *Config) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var file map[string]any
	if c.path != "" {
		f, err := loader.ForPath(c.fs, c.path)
		if err != nil {
			return err
		}
		file, err = f.Load()
		if err != nil {
			return err
		}
	}

	var env map[string]any
	if c.envPrefix != "" {
		var err error
		env, err = (&loader.Env{Prefix: c.envPrefix, Mapping: c.envMapping}).Load()
		if err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = file
	c.env = env
	c.merge()
	return nil
}

// Path returns the configuration file path, if any.
func (c *Config) Path() string {
	return c.path
}

// merge rebuilds the merged view. The caller must hold mu or own c.
func (c *Config) merge() {
	c.merged = loader.Merge(c.defaults, c.file, c.env, c.overrides)
}

// Get returns the value at the given path from the merged configuration.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := splitPath(path)
	if len(keys) == 0 {
		return nil, false
	}
	return lookup(c.merged, keys)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", notFound(path)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(path, "string", v)
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
// Floats are accepted when they hold a whole number.
func (c *Config) GetInt(path string) (int64, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, notFound(path)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return int64(n), nil
		}
	}
	return 0, wrongType(path, "int", v)
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, notFound(path)
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(path, "bool", v)
	}
	return b, nil
}

// GetDuration returns a duration at the given path. Strings are parsed
// with time.ParseDuration and integers are taken as milliseconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, notFound(path)
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case int:
		return time.Duration(d) * time.Millisecond, nil
	case int64:
		return time.Duration(d) * time.Millisecond, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err == nil {
			return parsed, nil
		}
	}
	return 0, wrongType(path, "duration", v)
}

// Set overrides a value at the given path. Overrides take precedence over
// every loaded source and survive later calls to Load. A path that runs
// through an existing value, rather than a section, is rejected.
func (c *Config) Set(path string, value any) error {
	keys := splitPath(path)
	if len(keys) == 0 {
		return &SettingError{Path: path, Reason: ErrInvalidPath}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 1; i < len(keys); i++ {
		v, ok := lookup(c.merged, keys[:i])
		if _, section := v.(map[string]any); ok && !section {
			return &SettingError{
				Path:   path,
				Reason: ErrInvalidPath,
				Detail: strings.Join(keys[:i], ".") + " is not a section",
			}
		}
	}
	setIn(c.overrides, keys, value)
	c.merge()
	return nil
}

// Merged returns a copy of the fully merged configuration.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.Merge(c.merged)
}

// defaultConfig returns the default configuration values.
func defaultConfig() map[string]any {
	return map[string]any{
		"index": map[string]any{
			"stride": int64(2048),
		},
		"registry": map[string]any{
			"grain": int64(16),
		},
		"files": map[string]any{
			"maxFileSize":  int64(64 << 20),
			"mmap":         true,
			"watch":        false,
			"debounce":     "100ms",
			"allowBinary":  false,
			"pollInterval": "2s",
		},
		"logging": map[string]any{
			"level": "info",
		},
	}
}

func lookup(m map[string]any, keys []string) (any, bool) {
	var v any = m
	for _, key := range keys {
		section, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = section[key]; !ok {
			return nil, false
		}
	}
	return v, true
}

func setIn(m map[string]any, keys []string, value any) {
	last := len(keys) - 1
	for _, key := range keys[:last] {
		section, ok := m[key].(map[string]any)
		if !ok {
			section = make(map[string]any)
			m[key] = section
		}
		m = section
	}
	m[keys[last]] = value
}

// splitPath splits a dotted path, ignoring empty parts.
func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '.' })
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case int, int64:
		return "int"
	case time.Duration:
		return "duration"
	case map[string]any:
		return "section"
	}
	return fmt.Sprintf("%T", v)
}
