package app

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the severity of a log line.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	levelOff
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
	return levelNames[l]
}

// ParseLevel maps a configured level name to a Level. Names are case
// insensitive and "warning" is accepted for warn.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

// sink is the destination shared by a logger and everything derived
// from it. Lines are written whole under mu.
type sink struct {
	mu    sync.Mutex
	w     io.Writer
	level atomic.Int32
	now   func() time.Time
}

// Logger writes printf-style lines of the form
//
//	2006-01-02T15:04:05.000 INFO  component: message key=value ...
//
// Loggers are immutable apart from their level; With and Component
// return new loggers that share the parent's sink.
type Logger struct {
	sink      *sink
	component string
	fields    []string // rendered "key=value", sorted by key
}

// NewLogger returns a logger writing lines at or above level to w.
// A nil w writes to standard error.
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	s := &sink{w: w, now: time.Now}
	s.level.Store(int32(level))
	return &Logger{sink: s}
}

// NopLogger returns a logger that writes nothing.
func NopLogger() *Logger {
	return NewLogger(io.Discard, levelOff)
}

// Component returns a logger whose lines are attributed to name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{sink: l.sink, component: name, fields: l.fields}
}

// With returns a logger that appends key=value to every line. A key
// that is already set is replaced.
func (l *Logger) With(key string, value any) *Logger {
	field := fmt.Sprintf("%s=%v", key, value)
	fields := slices.DeleteFunc(slices.Clone(l.fields), func(f string) bool {
		return strings.HasPrefix(f, key+"=")
	})
	i, _ := slices.BinarySearch(fields, field)
	return &Logger{
		sink:      l.sink,
		component: l.component,
		fields:    slices.Insert(fields, i, field),
	}
}

// SetLevel changes the threshold of l and every logger sharing its sink.
func (l *Logger) SetLevel(level Level) {
	l.sink.level.Store(int32(level))
}

// Enabled reports whether lines at level are written.
func (l *Logger) Enabled(level Level) bool {
	return int32(level) >= l.sink.level.Load()
}

func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, format, args) }
func (l *Logger) Info(format string, args ...any)  { l.logf(LevelInfo, format, args) }
func (l *Logger) Warn(format string, args ...any)  { l.logf(LevelWarn, format, args) }
func (l *Logger) Error(format string, args ...any) { l.logf(LevelError, format, args) }

func (l *Logger) logf(level Level, format string, args []any) {
	if !l.Enabled(level) {
		return
	}

	var b strings.Builder
	b.WriteString(l.sink.now().Format("2006-01-02T15:04:05.000"))
	fmt.Fprintf(&b, " %-5s ", level)
	if l.component != "" {
		b.WriteString(l.component)
		b.WriteString(": ")
	}
	if len(args) > 0 {
		fmt.Fprintf(&b, format, args...)
	} else {
		b.WriteString(format)
	}
	for _, f := range l.fields {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	b.WriteByte('\n')

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = io.WriteString(l.sink.w, b.String())
}

// Logger returns the application's logger.
func (app *Application) Logger() *Logger {
	return app.logger
}
