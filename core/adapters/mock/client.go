// Package mock provides mock implementations of the ports interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// Factory is a mock implementation of ports.BackendFactory. Every session
// it opens shares the same NetworkBackend, so state survives across
// adapter calls.
type Factory struct {
	mu sync.RWMutex

	// OnOpen replaces the default behavior of handing out Backend.
	OnOpen func(ctx context.Context, user domain.DelegatedUser) (ports.NetworkBackend, error)

	// Users records the delegated user of every opened session.
	Users []domain.DelegatedUser

	Backend *NetworkBackend
}

var _ ports.BackendFactory = (*Factory)(nil)

// NewFactory creates a Factory around a fresh NetworkBackend.
func NewFactory() *Factory {
	return &Factory{Backend: NewNetworkBackend()}
}

// NewNetworkBackend opens a session for user.
func (f *Factory) NewNetworkBackend(ctx context.Context, user domain.DelegatedUser) (ports.NetworkBackend, error) {
	f.mu.Lock()
	f.Users = append(f.Users, user)
	f.mu.Unlock()

	if f.OnOpen != nil {
		return f.OnOpen(ctx, user)
	}
	return f.Backend, nil
}

// Sessions returns the number of sessions opened so far.
func (f *Factory) Sessions() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.Users)
}
