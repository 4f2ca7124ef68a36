package ports

import (
	"context"
	"fmt"
	"maps"

	"github.com/netresearch/occi-now/core/domain"
)

// Keys of a raw network record.
const (
	RawKeyID          = "id"
	RawKeyTitle       = "title"
	RawKeyDescription = "description"
	RawKeyVLAN        = "vlan"
	RawKeyRange       = "range"

	RawKeyAddress    = "address"
	RawKeyAllocation = "allocation"
	RawKeyGateway    = "gateway"
)

// RawNetwork is the backend's native network record. Absent keys are omitted
// entirely, never stored with a nil value. The optional "range" key holds a
// RawRange.
type RawNetwork map[string]any

// RawRange is the nested address range of a raw network record.
type RawRange map[string]any

// ID returns the "id" key rendered as a string, or "" when absent.
func (r RawNetwork) ID() string {
	switch v := r[RawKeyID].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Range returns the nested range record, or nil when absent or malformed.
func (r RawNetwork) Range() RawRange {
	switch v := r[RawKeyRange].(type) {
	case RawRange:
		return v
	case map[string]any:
		return RawRange(v)
	default:
		return nil
	}
}

// Clone returns a copy of r that shares no maps with it.
func (r RawNetwork) Clone() RawNetwork {
	if r == nil {
		return nil
	}
	out := make(RawNetwork, len(r))
	maps.Copy(out, r)
	if rng := r.Range(); rng != nil {
		out[RawKeyRange] = maps.Clone(rng)
	}
	return out
}

// Merge overlays the keys of update onto r. The "range" record is merged
// key by key rather than replaced.
func (r RawNetwork) Merge(update RawNetwork) {
	for key, value := range update {
		if key != RawKeyRange {
			r[key] = value
			continue
		}
		rng := r.Range()
		if rng == nil {
			rng = RawRange{}
		} else {
			rng = maps.Clone(rng)
		}
		maps.Copy(rng, update.Range())
		r[RawKeyRange] = rng
	}
}

// NetworkBackend provides raw network operations against a backend service.
type NetworkBackend interface {
	// List returns all raw network records, in backend order.
	List(ctx context.Context) ([]RawNetwork, error)

	// Get returns one raw record. A missing network is reported either as a
	// nil record or as a *domain.NetworkNotFoundError.
	Get(ctx context.Context, id string) (RawNetwork, error)

	// Create submits a new record and returns the identifier assigned by the
	// backend.
	Create(ctx context.Context, network RawNetwork) (string, error)

	// Update merges the supplied keys into the record identified by id.
	Update(ctx context.Context, id string, network RawNetwork) error

	// Replace swaps the record identified by id for network. Keys missing
	// from network are removed; the id itself is kept.
	Replace(ctx context.Context, id string, network RawNetwork) error

	// Delete removes a record.
	Delete(ctx context.Context, id string) error
}

// BackendFactory opens backend sessions scoped to a delegated user. The
// adapter configuration is bound when the factory is built.
type BackendFactory interface {
	NewNetworkBackend(ctx context.Context, user domain.DelegatedUser) (NetworkBackend, error)
}

// BackendFactoryFunc adapts a function to BackendFactory.
type BackendFactoryFunc func(ctx context.Context, user domain.DelegatedUser) (NetworkBackend, error)

// NewNetworkBackend calls f.
func (f BackendFactoryFunc) NewNetworkBackend(ctx context.Context, user domain.DelegatedUser) (NetworkBackend, error) {
	return f(ctx, user)
}
