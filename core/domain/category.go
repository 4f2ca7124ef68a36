package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Category identifies an OCCI kind, mixin or action by scheme and term.
type Category struct {
	Scheme string
	Term   string
	Title  string
}

// Identifier returns the scheme and term joined, e.g.
// "http://schemas.ogf.org/occi/infrastructure/network#ipnetwork".
func (c Category) Identifier() string {
	return c.Scheme + c.Term
}

func (c Category) String() string {
	return c.Identifier()
}

// ParseCategory splits a category identifier at the last '#'.
func ParseCategory(identifier string) (Category, error) {
	idx := strings.LastIndex(identifier, "#")
	if idx < 0 || idx == len(identifier)-1 {
		return Category{}, &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("%q is not a scheme#term identifier", identifier),
		}
	}
	return Category{Scheme: identifier[:idx+1], Term: identifier[idx+1:]}, nil
}

var (
	// NetworkKind is the OCCI kind of every network resource.
	NetworkKind = Category{
		Scheme: "http://schemas.ogf.org/occi/infrastructure#",
		Term:   "network",
		Title:  "Network resource",
	}

	// IPNetworkMixin classifies a network as an IP network. Every network
	// produced by the NOW backend carries exactly this mixin.
	IPNetworkMixin = Category{
		Scheme: "http://schemas.ogf.org/occi/infrastructure/network#",
		Term:   "ipnetwork",
		Title:  "IP network mixin",
	}
)

// Mixin describes a mixin category together with its discovery metadata.
type Mixin struct {
	Category
	Related    []string
	Attributes []string
	Actions    []Category
	Location   string
}

// Action describes an action category.
type Action struct {
	Category
	Attributes []string
}

// ActionInstance is a request to trigger an action.
type ActionInstance struct {
	Action     Category
	Attributes map[string]any
}

// Link is an OCCI link attached to a resource.
type Link struct {
	ID     string
	Kind   string
	Target string
}

// Collection holds backend-specific mixins and actions.
type Collection struct {
	Mixins  []Mixin
	Actions []Action
}

// IsEmpty reports whether the collection contributes nothing.
func (c *Collection) IsEmpty() bool {
	return c == nil || (len(c.Mixins) == 0 && len(c.Actions) == 0)
}

// MixinSet is a set of category identifiers.
//
// A nil MixinSet means "no filter"; a non-nil empty set matches nothing.
type MixinSet map[string]struct{}

// NewMixinSet builds a set from the given categories.
func NewMixinSet(categories ...Category) MixinSet {
	s := make(MixinSet, len(categories))
	for _, c := range categories {
		s.Add(c)
	}
	return s
}

// ParseMixinSet builds a set from raw identifiers. Identifiers are kept
// verbatim, malformed ones simply never match.
func ParseMixinSet(identifiers ...string) MixinSet {
	s := make(MixinSet, len(identifiers))
	for _, id := range identifiers {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts a category.
func (s MixinSet) Add(c Category) {
	s[c.Identifier()] = struct{}{}
}

// Has reports whether the category is a member.
func (s MixinSet) Has(c Category) bool {
	_, ok := s[c.Identifier()]
	return ok
}

// Intersects reports whether both sets share at least one identifier.
func (s MixinSet) Intersects(other MixinSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// Slice returns the identifiers in lexical order.
func (s MixinSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
