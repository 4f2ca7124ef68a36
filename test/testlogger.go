// Package test holds helpers shared by the test suites of occi-now.
package test

import (
	"fmt"
	"strings"
	"sync"
)

// Logger captures log lines in memory. It implements core.Logger.
type Logger struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// LogEntry is a single captured line.
type LogEntry struct {
	Level   string
	Message string
}

// Levels recorded in LogEntry.Level.
const (
	LevelCritical = "CRITICAL"
	LevelError    = "ERROR"
	LevelWarning  = "WARN"
	LevelNotice   = "NOTICE"
	LevelDebug    = "DEBUG"
)

// NewTestLogger creates an empty Logger.
func NewTestLogger() *Logger {
	return &Logger{}
}

func (l *Logger) Criticalf(format string, args ...any) { l.log(LevelCritical, format, args...) }
func (l *Logger) Errorf(format string, args ...any)    { l.log(LevelError, format, args...) }
func (l *Logger) Warningf(format string, args ...any)  { l.log(LevelWarning, format, args...) }
func (l *Logger) Noticef(format string, args ...any)   { l.log(LevelNotice, format, args...) }
func (l *Logger) Debugf(format string, args ...any)    { l.log(LevelDebug, format, args...) }

func (l *Logger) log(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Messages returns the messages logged at level, in order.
func (l *Logger) Messages(level string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []string
	for _, e := range l.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// HasMessage reports whether any line contains substr.
func (l *Logger) HasMessage(substr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// HasError reports whether an error line contains substr.
func (l *Logger) HasError(substr string) bool {
	for _, msg := range l.Messages(LevelError) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Clear drops all captured lines.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
