package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/netresearch/occi-now/core/domain"
)

var testMixins = []domain.Category{
	domain.IPNetworkMixin,
	{Scheme: "http://example.com/occi/custom#", Term: "lab"},
	{Scheme: "http://example.com/occi/custom#", Term: "prod"},
}

func mixinSetGen() *rapid.Generator[domain.MixinSet] {
	return rapid.Custom(func(t *rapid.T) domain.MixinSet {
		picked := rapid.SliceOfDistinct(rapid.SampledFrom(testMixins), func(c domain.Category) string {
			return c.Identifier()
		}).Draw(t, "mixins")
		return domain.NewMixinSet(picked...)
	})
}

func networksGen() *rapid.Generator[[]*domain.Network] {
	return rapid.Custom(func(t *rapid.T) []*domain.Network {
		n := rapid.IntRange(0, 8).Draw(t, "count")
		networks := make([]*domain.Network, 0, n)
		for i := range n {
			networks = append(networks, &domain.Network{
				Attributes: domain.NetworkAttributes{ID: fmt.Sprintf("n%d", i)},
				Mixins:     mixinSetGen().Draw(t, fmt.Sprintf("mixins%d", i)),
			})
		}
		return networks
	})
}

func TestFilterNetworks(t *testing.T) {
	t.Parallel()

	lab := testMixins[1]
	networks := []*domain.Network{
		{Attributes: domain.NetworkAttributes{ID: "a"}, Mixins: domain.NewMixinSet(domain.IPNetworkMixin)},
		{Attributes: domain.NetworkAttributes{ID: "b"}, Mixins: domain.NewMixinSet(domain.IPNetworkMixin, lab)},
		{Attributes: domain.NetworkAttributes{ID: "c"}, Mixins: domain.NewMixinSet(lab)},
	}

	ids := func(ns []*domain.Network) []string {
		out := make([]string, 0, len(ns))
		for _, n := range ns {
			out = append(out, n.ID())
		}
		return out
	}

	tests := []struct {
		name   string
		filter domain.MixinSet
		want   []string
	}{
		{"nil filter", nil, []string{"a", "b", "c"}},
		{"empty filter", domain.MixinSet{}, []string{}},
		{"ipnetwork", domain.NewMixinSet(domain.IPNetworkMixin), []string{"a", "b"}},
		{"lab", domain.NewMixinSet(lab), []string{"b", "c"}},
		{"either", domain.NewMixinSet(domain.IPNetworkMixin, lab), []string{"a", "b", "c"}},
		{"unknown", domain.ParseMixinSet("http://example.com/none#none"), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterNetworks(networks, tt.filter)))
		})
	}
}

func TestFilterNetworksPassThrough(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		networks := networksGen().Draw(t, "networks")
		assert.Equal(t, networks, FilterNetworks(networks, nil))
	})
}

func TestFilterNetworksIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		networks := networksGen().Draw(t, "networks")
		filter := mixinSetGen().Draw(t, "filter")

		once := FilterNetworks(networks, filter)
		assert.Equal(t, once, FilterNetworks(once, filter))
	})
}
