// Package testutil provides polling helpers for tests that wait on
// background goroutines.
package testutil

import (
	"testing"
	"time"
)

// Defaults used by Eventually and Never.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 20 * time.Millisecond
)

type config struct {
	timeout  time.Duration
	interval time.Duration
	message  string
}

// Option configures Eventually and Never.
type Option func(*config)

// WithTimeout sets the maximum time to wait.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.interval = d }
}

// WithMessage sets the message reported on failure.
func WithMessage(msg string) Option {
	return func(c *config) { c.message = msg }
}

func newConfig(message string, opts []Option) *config {
	cfg := &config{timeout: DefaultTimeout, interval: DefaultInterval, message: message}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// poll checks condition immediately and then on every tick. It reports
// whether condition held before the timeout.
func poll(cfg *config, condition func() bool) bool {
	if condition() {
		return true
	}

	deadline := time.NewTimer(cfg.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-deadline.C:
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// Eventually polls condition until it returns true, failing t when the
// timeout expires first.
func Eventually(t testing.TB, condition func() bool, opts ...Option) bool {
	t.Helper()

	cfg := newConfig("condition was not satisfied", opts)
	if !poll(cfg, condition) {
		t.Errorf("Eventually timed out after %v: %s", cfg.timeout, cfg.message)
		return false
	}
	return true
}

// Never fails t as soon as condition returns true within the timeout.
func Never(t testing.TB, condition func() bool, opts ...Option) bool {
	t.Helper()

	cfg := newConfig("condition became true unexpectedly", opts)
	if poll(cfg, condition) {
		t.Errorf("Never failed: %s", cfg.message)
		return false
	}
	return true
}

// WaitForClose waits for ch to be closed within timeout.
func WaitForClose[T any](t testing.TB, ch <-chan T, timeout time.Duration) bool {
	t.Helper()

	select {
	case _, ok := <-ch:
		return !ok
	case <-time.After(timeout):
		t.Errorf("WaitForClose timed out after %v", timeout)
		return false
	}
}
