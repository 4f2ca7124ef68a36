package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// NetworkBackend is an in-memory implementation of ports.NetworkBackend.
// Records keep their insertion order. Get reports a missing record as nil;
// Update, Replace and Delete report it as a *domain.NetworkNotFoundError.
type NetworkBackend struct {
	mu sync.RWMutex

	// Callbacks for customizing behavior
	OnList   func(ctx context.Context) ([]ports.RawNetwork, error)
	OnGet    func(ctx context.Context, id string) (ports.RawNetwork, error)
	OnCreate func(ctx context.Context, network ports.RawNetwork) (string, error)
	OnUpdate  func(ctx context.Context, id string, network ports.RawNetwork) error
	OnReplace func(ctx context.Context, id string, network ports.RawNetwork) error
	OnDelete func(ctx context.Context, id string) error

	// Call tracking
	ListCalls   int
	GetCalls    []string
	CreateCalls []ports.RawNetwork
	UpdateCalls  []NetworkUpdateCall
	ReplaceCalls []NetworkUpdateCall
	DeleteCalls []string

	networks []ports.RawNetwork
}

// NetworkUpdateCall represents a call to Update() or Replace().
type NetworkUpdateCall struct {
	ID      string
	Network ports.RawNetwork
}

var _ ports.NetworkBackend = (*NetworkBackend)(nil)

// NewNetworkBackend creates an empty mock NetworkBackend.
func NewNetworkBackend() *NetworkBackend {
	return &NetworkBackend{}
}

// List returns copies of all stored records.
func (b *NetworkBackend) List(ctx context.Context) ([]ports.RawNetwork, error) {
	b.mu.Lock()
	b.ListCalls++
	b.mu.Unlock()

	if b.OnList != nil {
		return b.OnList(ctx)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ports.RawNetwork, 0, len(b.networks))
	for _, n := range b.networks {
		out = append(out, n.Clone())
	}
	return out, nil
}

// Get returns a copy of the record identified by id, or nil.
func (b *NetworkBackend) Get(ctx context.Context, id string) (ports.RawNetwork, error) {
	b.mu.Lock()
	b.GetCalls = append(b.GetCalls, id)
	b.mu.Unlock()

	if b.OnGet != nil {
		return b.OnGet(ctx, id)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := b.index(id); i >= 0 {
		return b.networks[i].Clone(), nil
	}
	return nil, nil
}

// Create stores network under a freshly assigned identifier. Any "id" key
// in network is replaced.
func (b *NetworkBackend) Create(ctx context.Context, network ports.RawNetwork) (string, error) {
	b.mu.Lock()
	b.CreateCalls = append(b.CreateCalls, network.Clone())
	b.mu.Unlock()

	if b.OnCreate != nil {
		return b.OnCreate(ctx, network)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	stored := network.Clone()
	if stored == nil {
		stored = ports.RawNetwork{}
	}
	stored[ports.RawKeyID] = id.String()

	b.mu.Lock()
	b.networks = append(b.networks, stored)
	b.mu.Unlock()
	return id.String(), nil
}

// Update merges network into the record identified by id.
func (b *NetworkBackend) Update(ctx context.Context, id string, network ports.RawNetwork) error {
	b.mu.Lock()
	b.UpdateCalls = append(b.UpdateCalls, NetworkUpdateCall{ID: id, Network: network.Clone()})
	b.mu.Unlock()

	if b.OnUpdate != nil {
		return b.OnUpdate(ctx, id, network)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return &domain.NetworkNotFoundError{ID: id}
	}
	b.networks[i].Merge(network)
	b.networks[i][ports.RawKeyID] = id
	return nil
}

// Replace stores a copy of network in place of the record identified by id.
func (b *NetworkBackend) Replace(ctx context.Context, id string, network ports.RawNetwork) error {
	b.mu.Lock()
	b.ReplaceCalls = append(b.ReplaceCalls, NetworkUpdateCall{ID: id, Network: network.Clone()})
	b.mu.Unlock()

	if b.OnReplace != nil {
		return b.OnReplace(ctx, id, network)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return &domain.NetworkNotFoundError{ID: id}
	}
	stored := network.Clone()
	if stored == nil {
		stored = ports.RawNetwork{}
	}
	stored[ports.RawKeyID] = id
	b.networks[i] = stored
	return nil
}

// Delete removes the record identified by id.
func (b *NetworkBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	b.DeleteCalls = append(b.DeleteCalls, id)
	b.mu.Unlock()

	if b.OnDelete != nil {
		return b.OnDelete(ctx, id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return &domain.NetworkNotFoundError{ID: id}
	}
	b.networks = slices.Delete(b.networks, i, i+1)
	return nil
}

// SetNetworks replaces the stored records, keeping their ids as given.
func (b *NetworkBackend) SetNetworks(networks ...ports.RawNetwork) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.networks = make([]ports.RawNetwork, 0, len(networks))
	for _, n := range networks {
		b.networks = append(b.networks, n.Clone())
	}
}

// Len returns the number of stored records.
func (b *NetworkBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.networks)
}

// index must be called with mu held.
func (b *NetworkBackend) index(id string) int {
	return slices.IndexFunc(b.networks, func(n ports.RawNetwork) bool {
		return n.ID() == id
	})
}
