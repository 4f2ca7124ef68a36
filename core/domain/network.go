// Package domain contains the backend-agnostic OCCI model served by occi-now.
// These types are independent of any specific backend client implementation.
package domain

import (
	"context"
	"fmt"
	"maps"
)

// OCCI attribute names of a network resource.
const (
	AttrCoreID            = "occi.core.id"
	AttrCoreTitle         = "occi.core.title"
	AttrCoreSummary       = "occi.core.summary"
	AttrNetworkVLAN       = "occi.network.vlan"
	AttrNetworkAddress    = "occi.network.address"
	AttrNetworkAllocation = "occi.network.allocation"
	AttrNetworkGateway    = "occi.network.gateway"
)

// Network represents an OCCI network resource.
type Network struct {
	Attributes NetworkAttributes
	Mixins     MixinSet
}

// NewNetwork returns a network carrying the IP network mixin.
func NewNetwork(attrs NetworkAttributes) *Network {
	return &Network{
		Attributes: attrs,
		Mixins:     NewMixinSet(IPNetworkMixin),
	}
}

// ID returns the occi.core.id of the network.
func (n *Network) ID() string {
	if n == nil {
		return ""
	}
	return n.Attributes.ID
}

// NetworkAttributes holds the attributes of a network. Pointer fields and a
// nil VLAN mean "absent"; they are never defaulted to zero values.
type NetworkAttributes struct {
	ID         string
	Title      *string
	Summary    *string
	VLAN       any // string or number, passed through opaquely
	Address    *string
	Allocation *string
	Gateway    *string

	// Extra holds attributes this adapter does not know about.
	Extra map[string]any
}

// Merge overlays every present attribute of other onto a.
func (a *NetworkAttributes) Merge(other NetworkAttributes) {
	if other.ID != "" {
		a.ID = other.ID
	}
	if other.Title != nil {
		a.Title = other.Title
	}
	if other.Summary != nil {
		a.Summary = other.Summary
	}
	if other.VLAN != nil {
		a.VLAN = other.VLAN
	}
	if other.Address != nil {
		a.Address = other.Address
	}
	if other.Allocation != nil {
		a.Allocation = other.Allocation
	}
	if other.Gateway != nil {
		a.Gateway = other.Gateway
	}
	if len(other.Extra) > 0 {
		if a.Extra == nil {
			a.Extra = make(map[string]any, len(other.Extra))
		}
		maps.Copy(a.Extra, other.Extra)
	}
}

// Map renders the attributes keyed by OCCI attribute name. Absent attributes
// are left out.
func (a NetworkAttributes) Map() map[string]any {
	m := make(map[string]any, len(a.Extra)+7)
	maps.Copy(m, a.Extra)
	if a.ID != "" {
		m[AttrCoreID] = a.ID
	}
	putString(m, AttrCoreTitle, a.Title)
	putString(m, AttrCoreSummary, a.Summary)
	if a.VLAN != nil {
		m[AttrNetworkVLAN] = a.VLAN
	}
	putString(m, AttrNetworkAddress, a.Address)
	putString(m, AttrNetworkAllocation, a.Allocation)
	putString(m, AttrNetworkGateway, a.Gateway)
	return m
}

func putString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

// ParseNetworkAttributes reads attributes keyed by OCCI attribute name.
// Unknown names end up in Extra.
func ParseNetworkAttributes(m map[string]any) (NetworkAttributes, error) {
	var a NetworkAttributes
	for key, value := range m {
		if value == nil {
			continue
		}
		if key == AttrNetworkVLAN {
			a.VLAN = value
			continue
		}

		var target **string
		switch key {
		case AttrCoreID:
			s, err := stringValue(key, value)
			if err != nil {
				return NetworkAttributes{}, err
			}
			a.ID = s
			continue
		case AttrCoreTitle:
			target = &a.Title
		case AttrCoreSummary:
			target = &a.Summary
		case AttrNetworkAddress:
			target = &a.Address
		case AttrNetworkAllocation:
			target = &a.Allocation
		case AttrNetworkGateway:
			target = &a.Gateway
		default:
			if a.Extra == nil {
				a.Extra = make(map[string]any)
			}
			a.Extra[key] = value
			continue
		}

		s, err := stringValue(key, value)
		if err != nil {
			return NetworkAttributes{}, err
		}
		*target = &s
	}
	return a, nil
}

func stringValue(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", &ValidationError{
			Field:   key,
			Message: fmt.Sprintf("expected a string, got %T", value),
		}
	}
	return s, nil
}

// DelegatedUser is the identity of the caller, forwarded to the backend.
type DelegatedUser struct {
	Identity   string
	Attributes map[string]string
}

type delegatedUserKey struct{}

// WithDelegatedUser returns a context carrying the delegated user.
func WithDelegatedUser(ctx context.Context, user DelegatedUser) context.Context {
	return context.WithValue(ctx, delegatedUserKey{}, user)
}

// DelegatedUserFromContext returns the delegated user stored in ctx, or the
// zero value when there is none.
func DelegatedUserFromContext(ctx context.Context) DelegatedUser {
	user, _ := ctx.Value(delegatedUserKey{}).(DelegatedUser)
	return user
}
