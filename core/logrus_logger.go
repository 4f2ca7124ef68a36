package core

import "github.com/sirupsen/logrus"

// LogrusAdapter satisfies Logger with a logrus entry, so every line carries
// the fields attached to that entry (e.g. component=network).
type LogrusAdapter struct {
	Entry *logrus.Entry
}

var _ Logger = (*LogrusAdapter)(nil)

// NewLogrusAdapter wraps logger and tags its output with the component name.
func NewLogrusAdapter(logger *logrus.Logger, component string) *LogrusAdapter {
	entry := logrus.NewEntry(logger)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return &LogrusAdapter{Entry: entry}
}

// WithField returns an adapter whose lines additionally carry key=value.
func (l *LogrusAdapter) WithField(key string, value any) *LogrusAdapter {
	return &LogrusAdapter{Entry: l.Entry.WithField(key, value)}
}

func (l *LogrusAdapter) logf(level logrus.Level, format string, args ...any) {
	l.Entry.Logf(level, format, args...)
}

func (l *LogrusAdapter) Criticalf(format string, args ...any) {
	l.logf(logrus.ErrorLevel, format, args...)
}

func (l *LogrusAdapter) Debugf(format string, args ...any) {
	l.logf(logrus.DebugLevel, format, args...)
}

func (l *LogrusAdapter) Errorf(format string, args ...any) {
	l.logf(logrus.ErrorLevel, format, args...)
}

func (l *LogrusAdapter) Noticef(format string, args ...any) {
	l.logf(logrus.InfoLevel, format, args...)
}

func (l *LogrusAdapter) Warningf(format string, args ...any) {
	l.logf(logrus.WarnLevel, format, args...)
}
