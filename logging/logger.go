package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// A Sink receives log messages in addition to the local log output. Cluster
// workers use a Sink to forward messages to the Coordinator.
type Sink func(level int, source string, message string)

// Logger writes leveled messages through the standard library logger
type Logger struct {
	mu     sync.Mutex
	out    *log.Logger
	level  int
	source string
	sink   Sink
}

var defaultLogger = New(os.Stderr, InfoLevel)

// Default returns the process-wide Logger
func Default() *Logger {
	return defaultLogger
}

// New creates a Logger writing messages at or above level to w
func New(w io.Writer, level int) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags), level: level}
}

// Discard returns a Logger which drops every message
func Discard() *Logger {
	return New(io.Discard, FatalLevel+1)
}

// WithSource returns a copy of this Logger which tags messages with source
func (l *Logger) WithSource(source string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{out: l.out, level: l.level, source: source, sink: l.sink}
}

// SetLevel changes the minimum level of messages written by this Logger
func (l *Logger) SetLevel(level int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetSink installs a Sink which receives every message at ForwardLevel or above
func (l *Logger) SetSink(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// Logf writes a message at the given level
func (l *Logger) Logf(level int, format string, args ...interface{}) {
	l.mu.Lock()
	enabled, sink, source := level >= l.level, l.sink, l.source
	l.mu.Unlock()
	if !enabled && (sink == nil || level < ForwardLevel) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if enabled {
		if len(source) > 0 {
			l.out.Printf("[%s] %s: %s", LogLevelToString(level), source, msg)
		} else {
			l.out.Printf("[%s] %s", LogLevelToString(level), msg)
		}
	}
	if sink != nil && level >= ForwardLevel {
		sink(level, source, msg)
	}
}

// Tracef writes a message at TraceLevel
func (l *Logger) Tracef(format string, args ...interface{}) { l.Logf(TraceLevel, format, args...) }

// Debugf writes a message at DebugLevel
func (l *Logger) Debugf(format string, args ...interface{}) { l.Logf(DebugLevel, format, args...) }

// Infof writes a message at InfoLevel
func (l *Logger) Infof(format string, args ...interface{}) { l.Logf(InfoLevel, format, args...) }

// Warnf writes a message at WarnLevel
func (l *Logger) Warnf(format string, args ...interface{}) { l.Logf(WarnLevel, format, args...) }

// Errorf writes a message at ErrorLevel
func (l *Logger) Errorf(format string, args ...interface{}) { l.Logf(ErrorLevel, format, args...) }

// ParseLevel translates a level name, as produced by LogLevelToString, to a level
func ParseLevel(name string) (int, error) {
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("%s is an unknown log level", name)
}
