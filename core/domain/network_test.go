package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewNetwork(t *testing.T) {
	t.Parallel()

	n := NewNetwork(NetworkAttributes{ID: "net-1"})
	assert.Equal(t, "net-1", n.ID())
	assert.True(t, n.Mixins.Has(IPNetworkMixin))
	assert.Len(t, n.Mixins, 1)

	var none *Network
	assert.Empty(t, none.ID())
}

func TestNetworkAttributesMapOmitsAbsent(t *testing.T) {
	t.Parallel()

	a := NetworkAttributes{
		ID:    "net-1",
		Title: strPtr(""),
		VLAN:  42,
		Extra: map[string]any{"x.custom": true},
	}
	assert.Equal(t, map[string]any{
		AttrCoreID:      "net-1",
		AttrCoreTitle:   "",
		AttrNetworkVLAN: 42,
		"x.custom":      true,
	}, a.Map())
}

func TestParseNetworkAttributes(t *testing.T) {
	t.Parallel()

	a, err := ParseNetworkAttributes(map[string]any{
		AttrCoreID:            "net-1",
		AttrCoreSummary:       "lab",
		AttrNetworkVLAN:       "7",
		AttrNetworkAddress:    "10.0.0.0/24",
		AttrNetworkAllocation: "static",
		AttrNetworkGateway:    nil,
		"x.custom":            1,
	})
	require.NoError(t, err)
	assert.Equal(t, "net-1", a.ID)
	assert.Equal(t, "lab", *a.Summary)
	assert.Equal(t, "7", a.VLAN)
	assert.Equal(t, "10.0.0.0/24", *a.Address)
	assert.Equal(t, "static", *a.Allocation)
	assert.Nil(t, a.Gateway)
	assert.Nil(t, a.Title)
	assert.Equal(t, map[string]any{"x.custom": 1}, a.Extra)

	_, err = ParseNetworkAttributes(map[string]any{AttrNetworkAddress: 10})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, AttrNetworkAddress, verr.Field)
}

func TestNetworkAttributesMerge(t *testing.T) {
	t.Parallel()

	a := NetworkAttributes{ID: "net-1", Title: strPtr("old"), Gateway: strPtr("10.0.0.1")}
	a.Merge(NetworkAttributes{Title: strPtr("new"), VLAN: 3, Extra: map[string]any{"k": "v"}})

	assert.Equal(t, "net-1", a.ID)
	assert.Equal(t, "new", *a.Title)
	assert.Equal(t, "10.0.0.1", *a.Gateway)
	assert.Equal(t, 3, a.VLAN)
	assert.Equal(t, "v", a.Extra["k"])
}

func TestDelegatedUserContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DelegatedUser{}, DelegatedUserFromContext(context.Background()))

	ctx := WithDelegatedUser(context.Background(), DelegatedUser{Identity: "alice"})
	assert.Equal(t, "alice", DelegatedUserFromContext(ctx).Identity)
}

func TestErrorMatching(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("get: %w", &NetworkNotFoundError{ID: "net-1"})
	assert.True(t, IsNotFound(notFound))
	assert.EqualError(t, notFound, "get: network not found: net-1")

	assert.True(t, IsActionNotImplemented(&ActionNotImplementedError{}))
	assert.EqualError(t, &ActionNotImplementedError{}, "no actions implemented")
	assert.EqualError(t, &ActionNotImplementedError{Action: "up"}, "no actions implemented: up")

	assert.True(t, IsValidation(&ValidationError{Message: "bad"}))
	assert.EqualError(t, &ValidationError{Message: "bad"}, "validation failed: bad")
	assert.EqualError(t, &ValidationError{Field: "f", Message: "bad"}, "validation failed for f: bad")

	assert.False(t, IsConflict(errors.New("other")))
	assert.True(t, IsConflict(fmt.Errorf("x: %w", ErrConflict)))
	assert.EqualError(t, &BackendError{StatusCode: 502, Message: "down"}, "backend error (status 502): down")
}
