// Package registry keeps the categories and discovery locations contributed
// by extensions. A Registry is created once at startup and handed to
// whoever needs lookups; nothing registers itself implicitly.
package registry

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/netresearch/occi-now/core/domain"
)

var (
	// ErrInvalidCategory is returned for mixins without scheme or term.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrDuplicate is returned when an identifier or location is already
	// taken by a different mixin.
	ErrDuplicate = errors.New("already registered")
)

// Registry indexes mixins by category identifier and by location path.
type Registry struct {
	mu         sync.RWMutex
	categories map[string]domain.Mixin
	order      []string
	locations  map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		categories: make(map[string]domain.Mixin),
		locations:  make(map[string]string),
	}
}

// Register adds m to the category registry and, when m.Location is set, to
// the location registry. Registering an identical mixin again is a no-op.
func (r *Registry) Register(m domain.Mixin) error {
	if m.Scheme == "" || m.Term == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, m.Identifier())
	}

	var location string
	if m.Location != "" {
		var err error
		if location, err = cleanLocation(m.Location); err != nil {
			return err
		}
		m.Location = location
	}

	id := m.Identifier()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.categories[id]; ok && !equalMixins(existing, m) {
		return fmt.Errorf("category %s: %w", id, ErrDuplicate)
	}
	if owner, ok := r.locations[location]; ok && location != "" && owner != id {
		return fmt.Errorf("location %s: %w by %s", location, ErrDuplicate, owner)
	}

	if _, ok := r.categories[id]; !ok {
		r.order = append(r.order, id)
	}
	r.categories[id] = cloneMixin(m)
	if location != "" {
		r.locations[location] = id
	}
	return nil
}

// Category looks a mixin up by identifier (scheme followed by term).
func (r *Registry) Category(identifier string) (domain.Mixin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.categories[identifier]
	if !ok {
		return domain.Mixin{}, false
	}
	return cloneMixin(m), true
}

// Location looks a mixin up by the path it is discoverable at. A trailing
// slash is ignored.
func (r *Registry) Location(p string) (domain.Mixin, bool) {
	location, err := cleanLocation(p)
	if err != nil {
		return domain.Mixin{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.locations[location]
	if !ok {
		return domain.Mixin{}, false
	}
	return cloneMixin(r.categories[id]), true
}

// Mixins returns all registered mixins in registration order.
func (r *Registry) Mixins() []domain.Mixin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Mixin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneMixin(r.categories[id]))
	}
	return out
}

// Locations returns the registered location paths, sorted.
func (r *Registry) Locations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.locations))
	for location := range r.locations {
		out = append(out, location)
	}
	slices.Sort(out)
	return out
}

func cleanLocation(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("location %q must be an absolute path", p)
	}
	cleaned := path.Clean(p)
	if cleaned == "/" {
		return "", fmt.Errorf("location %q must not be the root", p)
	}
	return cleaned, nil
}

func cloneMixin(m domain.Mixin) domain.Mixin {
	m.Related = slices.Clone(m.Related)
	m.Attributes = slices.Clone(m.Attributes)
	m.Actions = slices.Clone(m.Actions)
	return m
}

func equalMixins(a, b domain.Mixin) bool {
	return a.Category == b.Category &&
		a.Location == b.Location &&
		slices.Equal(a.Related, b.Related) &&
		slices.Equal(a.Attributes, b.Attributes) &&
		slices.Equal(a.Actions, b.Actions)
}
