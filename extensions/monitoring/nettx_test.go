package monitoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/occi-now/extensions/monitoring"
	"github.com/netresearch/occi-now/registry"
)

func TestNetTxDescriptor(t *testing.T) {
	t.Parallel()

	m := monitoring.NetTx()
	assert.Equal(t, "http://example.com/occi/infrastructure/metric/compute#net_tx", m.Identifier())
	assert.Equal(t, "compute.net_tx", m.Title)
	assert.Equal(t, []string{monitoring.Metric.Identifier()}, m.Related)
	assert.Empty(t, m.Attributes)
	assert.Empty(t, m.Actions)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	reg := registry.New()

	require.NoError(t, monitoring.Register(reg))

	byID, ok := reg.Category("http://example.com/occi/infrastructure/metric/compute#net_tx")
	require.True(t, ok)
	byLocation, ok := reg.Location("/metric/compute/net_tx")
	require.True(t, ok)
	assert.Equal(t, byID, byLocation)

	// Registering twice leaves a single entry.
	require.NoError(t, monitoring.Register(reg))
	assert.Len(t, reg.Mixins(), 1)
}

func TestRegisterTouchesOnlyGivenRegistry(t *testing.T) {
	t.Parallel()

	used, untouched := registry.New(), registry.New()
	require.NoError(t, monitoring.Register(used))

	assert.Len(t, used.Mixins(), 1)
	assert.Empty(t, untouched.Mixins())
}
