package domain

import "time"

// Account links a user to one external identity provider. A user has at most one account per provider.
type Account struct {
	ID                string
	UserID            string
	Provider          Provider
	ProviderAccountID string
	CreatedAt         time.Time
}

// Provider names an identity provider (e.g. "google").
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderKeycloak Provider = "keycloak"
)

// ProviderSet is the set of providers a user is linked to.
type ProviderSet map[Provider]struct{}

// LinkedProviders returns the set of providers present in accounts.
func LinkedProviders(accounts []*Account) ProviderSet {
	set := make(ProviderSet, len(accounts))
	for _, a := range accounts {
		if a == nil {
			continue
		}
		set[a.Provider] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set.
func (s ProviderSet) Has(p Provider) bool {
	_, ok := s[p]
	return ok
}

// Names returns the provider names in the set in no particular order.
func (s ProviderSet) Names() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	return out
}
