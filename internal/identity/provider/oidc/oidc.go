// Package oidc implements provider.OAuthProvider for any OpenID Connect issuer
// (Google, Keycloak and similar) using discovery, PKCE and ID token verification.
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
)

var (
	// ErrEmailNotVerified is returned when the provider does not vouch for the email address.
	ErrEmailNotVerified = errors.New("provider email is not verified")
	// ErrMissingClaims is returned when the ID token lacks a subject or email.
	ErrMissingClaims = errors.New("id_token missing required claims")
)

// Config describes one OIDC client registration.
type Config struct {
	Name         accountdomain.Provider
	IssuerURL    string
	ClientID     string
	ClientSecret string // empty for public clients
	RedirectURL  string
	// Scopes defaults to openid, email, profile.
	Scopes []string
}

// Provider is an OIDC identity provider. It returns identity facts only.
type Provider struct {
	name        accountdomain.Provider
	oauthConfig *oauth2.Config
	verifier    *gooidc.IDTokenVerifier
}

// New discovers the issuer's endpoints and keys and returns a Provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Name == "" || cfg.IssuerURL == "" || cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, errors.New("oidc: name, issuer, client id and redirect url are required")
	}
	discovered, err := gooidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc: discover %s: %w", cfg.Name, err)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}
	return &Provider{
		name: cfg.Name,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     discovered.Endpoint(),
			Scopes:       scopes,
		},
		verifier: discovered.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() accountdomain.Provider {
	return p.name
}

// AuthCodeURL builds the authorization URL with S256 PKCE parameters.
func (p *Provider) AuthCodeURL(state, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode redeems code, verifies the returned ID token and returns the normalized identity.
// Identities whose email the provider has not verified are rejected with ErrEmailNotVerified.
func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*identitydomain.Identity, error) {
	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", p.name, err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s did not return id_token", p.name)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s id_token verification failed: %w", p.name, err)
	}

	var claims struct {
		Subject           string   `json:"sub"`
		Email             string   `json:"email"`
		EmailVerified     flexBool `json:"email_verified"`
		Name              string   `json:"name"`
		PreferredUsername string   `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s id_token claims parse failed: %w", p.name, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrMissingClaims
	}
	if !claims.EmailVerified {
		log.Printf("oidc: %s returned unverified email for subject", p.name)
		return nil, ErrEmailNotVerified
	}
	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}
	return &identitydomain.Identity{
		Provider:          p.name,
		ProviderAccountID: claims.Subject,
		Email:             claims.Email,
		EmailVerified:     true,
		Name:              name,
	}, nil
}

// flexBool accepts both JSON booleans and the "true"/"false" strings some issuers emit.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = flexBool(strings.EqualFold(s, "true"))
	return nil
}
