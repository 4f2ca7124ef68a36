package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// NetworkAdapter serves OCCI network resources from a raw network backend.
//
// Every operation opens a fresh backend session for the delegated user found
// in its context and runs synchronously. Backend errors are returned as they
// are, batch operations stop at the first failure.
type NetworkAdapter struct {
	backends ports.BackendFactory
	logger   Logger

	// toNetwork translates raw records; tests swap it to vary mixins.
	toNetwork func(ports.RawNetwork) *domain.Network
}

// NewNetworkAdapter returns an adapter opening sessions through backends.
func NewNetworkAdapter(backends ports.BackendFactory, logger Logger) *NetworkAdapter {
	if logger == nil {
		logger = nopLogger{}
	}
	return &NetworkAdapter{backends: backends, logger: logger, toNetwork: RawToNetwork}
}

func (a *NetworkAdapter) open(ctx context.Context) (ports.NetworkBackend, error) {
	return a.backends.NewNetworkBackend(ctx, domain.DelegatedUserFromContext(ctx))
}

// ListIDs returns the identifiers of all networks matching filter, without
// duplicates, in backend order.
func (a *NetworkAdapter) ListIDs(ctx context.Context, filter domain.MixinSet) ([]string, error) {
	networks, err := a.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(networks))
	seen := make(map[string]struct{}, len(networks))
	for _, n := range networks {
		id := n.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// List returns all networks matching filter. A nil filter matches all.
func (a *NetworkAdapter) List(ctx context.Context, filter domain.MixinSet) ([]*domain.Network, error) {
	backend, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	return a.list(ctx, backend, filter)
}

func (a *NetworkAdapter) list(ctx context.Context, backend ports.NetworkBackend, filter domain.MixinSet) ([]*domain.Network, error) {
	raws, err := backend.List(ctx)
	if err != nil {
		return nil, err
	}

	networks := make([]*domain.Network, 0, len(raws))
	for _, raw := range raws {
		networks = append(networks, a.toNetwork(raw))
	}
	return FilterNetworks(networks, filter), nil
}

// Get returns the network identified by id, or a *domain.NetworkNotFoundError.
func (a *NetworkAdapter) Get(ctx context.Context, id string) (*domain.Network, error) {
	backend, err := a.open(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &domain.NetworkNotFoundError{ID: id}
	}
	return a.toNetwork(raw), nil
}

// Create submits a new network and returns the identifier assigned by the
// backend, which may differ from any occi.core.id carried by network.
func (a *NetworkAdapter) Create(ctx context.Context, network *domain.Network) (string, error) {
	if network == nil {
		return "", &domain.ValidationError{Field: "network", Message: "no network given"}
	}
	a.logger.Noticef(logPrefix+"Creating network %s", describe(network.Attributes))

	backend, err := a.open(ctx)
	if err != nil {
		return "", err
	}
	return backend.Create(ctx, NetworkToRaw(network.Attributes))
}

// Delete removes the network identified by id.
func (a *NetworkAdapter) Delete(ctx context.Context, id string) error {
	a.logger.Noticef(logPrefix+"Deleting network %s", id)

	backend, err := a.open(ctx)
	if err != nil {
		return err
	}
	return backend.Delete(ctx, id)
}

// DeleteAll removes every network matching filter, one at a time, in list
// order. It stops at the first failure; networks deleted before it stay
// deleted.
func (a *NetworkAdapter) DeleteAll(ctx context.Context, filter domain.MixinSet) error {
	backend, err := a.open(ctx)
	if err != nil {
		return err
	}

	networks, err := a.list(ctx, backend, filter)
	if err != nil {
		return err
	}
	a.logger.Noticef(logPrefix+"Mass network delete of %d networks", len(networks))

	for _, n := range networks {
		a.logger.Noticef(logPrefix+"Deleting network %s", n.ID())
		if err := backend.Delete(ctx, n.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces the network identified by its occi.core.id.
func (a *NetworkAdapter) Update(ctx context.Context, network *domain.Network) error {
	if network == nil {
		return &domain.ValidationError{Field: "network", Message: "no network given"}
	}
	a.logger.Noticef(logPrefix+"Updating network to %s", describe(network.Attributes))

	backend, err := a.open(ctx)
	if err != nil {
		return err
	}
	raw := NetworkToRaw(network.Attributes)
	return backend.Replace(ctx, raw.ID(), raw)
}

// PartialUpdate merges attrs into the network identified by id. Mixins and
// links are accepted but not applied to NOW networks.
func (a *NetworkAdapter) PartialUpdate(ctx context.Context, id string, attrs *domain.NetworkAttributes, mixins domain.MixinSet, links []domain.Link) error {
	raw := ports.RawNetwork{}
	if attrs != nil {
		raw = NetworkToRaw(*attrs)
		a.logger.Noticef(logPrefix+"Updating network %s to %s", id, describe(*attrs))
	} else {
		a.logger.Noticef(logPrefix+"Updating network %s without attributes", id)
	}
	if len(mixins) > 0 || len(links) > 0 {
		a.logger.Debugf(logPrefix+"Ignoring %d mixins and %d links for network %s", len(mixins), len(links), id)
	}

	backend, err := a.open(ctx)
	if err != nil {
		return err
	}
	return backend.Update(ctx, id, raw)
}

// TriggerAction always fails: NOW networks implement no actions.
func (a *NetworkAdapter) TriggerAction(_ context.Context, id string, action domain.ActionInstance) error {
	a.logger.Debugf(logPrefix+"Refusing action %s on network %s", action.Action.Identifier(), id)
	return &domain.ActionNotImplementedError{Action: action.Action.Identifier()}
}

// TriggerActionOnAll triggers action on every network matching filter, in
// order, stopping at the first failure. As TriggerAction always fails, this
// fails on the first matching network and succeeds only when none match.
func (a *NetworkAdapter) TriggerActionOnAll(ctx context.Context, action domain.ActionInstance, filter domain.MixinSet) error {
	ids, err := a.ListIDs(ctx, filter)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.TriggerAction(ctx, id, action); err != nil {
			return err
		}
	}
	return nil
}

// Extensions returns the mixins and actions contributed by this backend:
// none.
func (a *NetworkAdapter) Extensions() *domain.Collection {
	return &domain.Collection{}
}

// describe renders attributes for log messages, sorted by name.
func describe(attrs domain.NetworkAttributes) string {
	m := attrs.Map()
	parts := make([]string, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s=%v", key, m[key]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
