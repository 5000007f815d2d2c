package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a level; unknown values mean warn.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return LevelWarn
	}
}

// StdLogger is a lightweight implementation backed by Go's log package.
// It never writes to stdout, which carries the hook protocol.
type StdLogger struct {
	out   *log.Logger
	level Level
}

// New creates a StdLogger writing to w at the given level.
func New(w io.Writer, level Level) *StdLogger {
	if w == nil {
		w = os.Stderr
	}
	return &StdLogger{out: log.New(w, "agentguard ", log.LstdFlags), level: level}
}

// NewStd creates a StdLogger on stderr. verbose selects debug level.
func NewStd(verbose bool) *StdLogger {
	if verbose {
		return New(os.Stderr, LevelDebug)
	}
	return New(os.Stderr, LevelWarn)
}

// OpenFile returns a writer appending to path, creating parent directories.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func (l *StdLogger) Debug(msg string, fields map[string]interface{}) {
	l.write(LevelDebug, "[DEBUG]", msg, nil, fields)
}

func (l *StdLogger) Info(msg string, fields map[string]interface{}) {
	l.write(LevelInfo, "[INFO]", msg, nil, fields)
}

func (l *StdLogger) Warn(msg string, fields map[string]interface{}) {
	l.write(LevelWarn, "[WARN]", msg, nil, fields)
}

func (l *StdLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.write(LevelError, "[ERROR]", msg, err, fields)
}

func (l *StdLogger) write(level Level, tag, msg string, err error, fields map[string]interface{}) {
	if level < l.level {
		return
	}
	var b strings.Builder
	b.WriteString(tag)
	b.WriteString(" ")
	b.WriteString(msg)
	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	l.out.Println(b.String())
}
