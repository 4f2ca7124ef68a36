package core

import "github.com/netresearch/occi-now/core/domain"

// FilterNetworks keeps the networks whose mixins intersect filter. A nil
// filter returns networks unchanged; an empty, non-nil one keeps nothing.
func FilterNetworks(networks []*domain.Network, filter domain.MixinSet) []*domain.Network {
	if filter == nil {
		return networks
	}

	kept := make([]*domain.Network, 0, len(networks))
	for _, n := range networks {
		if n != nil && n.Mixins.Intersects(filter) {
			kept = append(kept, n)
		}
	}
	return kept
}
