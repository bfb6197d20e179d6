// Package provider defines the contract for external identity providers and a registry
// to look them up by name.
package provider

import (
	"context"

	"golang.org/x/oauth2"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
)

// OAuthProvider is implemented by every external identity provider. Implementations return
// identity facts only and never create users, link accounts or issue sessions.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() accountdomain.Provider

	// AuthCodeURL returns the authorization URL for state and an S256 PKCE challenge.
	AuthCodeURL(state, codeChallenge string) string

	// ExchangeCode redeems code with the PKCE verifier and returns the verified identity.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*identitydomain.Identity, error)
}

// PKCE is a proof key for one authorization code flow.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE returns a fresh verifier with its S256 challenge.
func NewPKCE() PKCE {
	v := oauth2.GenerateVerifier()
	return PKCE{Verifier: v, Challenge: oauth2.S256ChallengeFromVerifier(v)}
}
