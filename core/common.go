// Package core implements the OCCI network backend on top of a raw network
// backend: attribute translation, mixin filtering and lifecycle dispatch.
package core

// logPrefix tags every message emitted by the network adapter.
const logPrefix = "[Backends] [NOW] "

type Logger interface {
	Criticalf(format string, args ...any)
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
	Noticef(format string, args ...any)
	Warningf(format string, args ...any)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Criticalf(string, ...any) {}
func (nopLogger) Debugf(string, ...any)    {}
func (nopLogger) Errorf(string, ...any)    {}
func (nopLogger) Noticef(string, ...any)   {}
func (nopLogger) Warningf(string, ...any)  {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }
