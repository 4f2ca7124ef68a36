package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"
)

// ShutdownManager runs registered hooks once when the process is asked to stop.
type ShutdownManager struct {
	timeout        time.Duration
	hooks          []ShutdownHook
	mu             sync.Mutex
	shutdownChan   chan struct{}
	done           chan struct{}
	result         error
	isShuttingDown bool
	logger         Logger
}

// ShutdownHook is a function to be called during shutdown
type ShutdownHook struct {
	Name     string
	Priority int // Lower values execute first
	Hook     func(context.Context) error
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = NopLogger()
	}

	return &ShutdownManager{
		timeout:      timeout,
		shutdownChan: make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger,
	}
}

// RegisterHook registers a shutdown hook. Hooks with equal priority keep
// their registration order.
func (sm *ShutdownManager) RegisterHook(hook ShutdownHook) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.hooks = append(sm.hooks, hook)
	slices.SortStableFunc(sm.hooks, func(a, b ShutdownHook) int {
		return a.Priority - b.Priority
	})
}

// ListenForShutdown shuts down on SIGINT, SIGTERM or SIGQUIT, or when ctx
// is canceled.
func (sm *ShutdownManager) ListenForShutdown(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer stop()
		select {
		case <-sigCtx.Done():
			if ctx.Err() == nil {
				sm.logger.Warningf("Received shutdown signal")
			}
			_ = sm.Shutdown()
		case <-sm.shutdownChan:
		}
	}()
}

// Shutdown runs every hook in priority order within the configured timeout.
func (sm *ShutdownManager) Shutdown() error {
	started, err := sm.shutdown()
	if !started {
		return ErrShutdownInProgress
	}
	sm.result = err
	close(sm.done)
	return err
}

// Wait blocks until a shutdown has finished and returns its result.
func (sm *ShutdownManager) Wait() error {
	<-sm.done
	return sm.result
}

func (sm *ShutdownManager) shutdown() (bool, error) {
	sm.mu.Lock()
	if sm.isShuttingDown {
		sm.mu.Unlock()
		return false, nil
	}
	sm.isShuttingDown = true
	hooks := slices.Clone(sm.hooks)
	close(sm.shutdownChan)
	sm.mu.Unlock()

	sm.logger.Noticef("Starting graceful shutdown (timeout: %v)", sm.timeout)

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, h := range hooks {
			sm.logger.Debugf("Executing shutdown hook: %s (priority: %d)", h.Name, h.Priority)
			if err := h.Hook(ctx); err != nil {
				sm.logger.Errorf("Shutdown hook '%s' failed: %v", h.Name, err)
				errs = append(errs, fmt.Errorf("hook %s: %w", h.Name, err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			return true, fmt.Errorf("%w: %w", ErrShutdownHooks, err)
		}
		sm.logger.Noticef("Graceful shutdown completed successfully")
		return true, nil
	case <-ctx.Done():
		sm.logger.Errorf("Graceful shutdown timed out after %v", sm.timeout)
		return true, ErrShutdownTimeout
	}
}

// ShutdownChan returns a channel that's closed when shutdown starts
func (sm *ShutdownManager) ShutdownChan() <-chan struct{} {
	return sm.shutdownChan
}

// IsShuttingDown returns true if shutdown is in progress
func (sm *ShutdownManager) IsShuttingDown() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.isShuttingDown
}

// RegisterServer stops server gracefully on shutdown.
func (sm *ShutdownManager) RegisterServer(name string, priority int, server *http.Server) {
	sm.RegisterHook(ShutdownHook{
		Name:     name,
		Priority: priority,
		Hook: func(ctx context.Context) error {
			sm.logger.Noticef("Stopping %s gracefully", name)
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown %s: %w", name, err)
			}
			return nil
		},
	})
}

// RegisterCloser calls close on shutdown, e.g. to release a database.
func (sm *ShutdownManager) RegisterCloser(name string, priority int, closeFn func() error) {
	sm.RegisterHook(ShutdownHook{
		Name:     name,
		Priority: priority,
		Hook: func(context.Context) error {
			return closeFn()
		},
	})
}
