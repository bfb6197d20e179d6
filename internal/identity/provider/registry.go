package provider

import (
	"errors"
	"fmt"
	"sort"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
)

// ErrUnknownProvider is returned when a provider name is not registered.
var ErrUnknownProvider = errors.New("unknown identity provider")

// Registry holds the configured providers keyed by name. It is built once and never mutated,
// so it is safe for concurrent use.
type Registry struct {
	providers map[accountdomain.Provider]OAuthProvider
}

// NewRegistry registers the given providers by name. Duplicate names are rejected.
func NewRegistry(list ...OAuthProvider) (*Registry, error) {
	m := make(map[accountdomain.Provider]OAuthProvider, len(list))
	for _, p := range list {
		if p == nil {
			continue
		}
		if _, dup := m[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate identity provider %q", p.Name())
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}, nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name accountdomain.Provider) (OAuthProvider, error) {
	if r != nil {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// Has reports whether name is registered. A nil Registry has no providers.
func (r *Registry) Has(name accountdomain.Provider) bool {
	if r == nil {
		return false
	}
	_, ok := r.providers[name]
	return ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, string(name))
	}
	sort.Strings(out)
	return out
}
