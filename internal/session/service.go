package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessiondomain "github.com/abhicommands/Next-Auth-Practice/internal/session/domain"
)

var (
	// ErrInvalidSession is returned when a presented session token cannot be validated or was revoked.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrRevocationDisabled is returned by SignOut when no revocation store is configured.
	ErrRevocationDisabled = errors.New("session revocation is not configured")
)

// TokenCodec signs and parses session tokens. *security.TokenProvider implements it.
type TokenCodec interface {
	IssueSession(claims sessiondomain.Claims) (string, time.Time, error)
	ParseSession(token string) (sessiondomain.Claims, sessiondomain.TokenMeta, error)
}

// Revocations records signed-out token ids until the tokens would have expired anyway.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// Issued is a signed session token with the claims and view it carries.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	Claims    sessiondomain.Claims
	View      sessiondomain.View
}

// Service runs the session lifecycle: sign, refresh, inspect and sign out.
// Tokens are self-contained; the only server-side state is the optional revocation list.
type Service struct {
	tokens      TokenCodec
	revocations Revocations
	projector   Projector
}

// NewService returns a Service signing with tokens.
func NewService(tokens TokenCodec) *Service {
	return &Service{tokens: tokens}
}

// WithRevocations enables SignOut and makes Refresh and Inspect reject revoked tokens.
func (s *Service) WithRevocations(r Revocations) *Service {
	s.revocations = r
	return s
}

// Sign issues a token for claims.
func (s *Service) Sign(claims sessiondomain.Claims) (*Issued, error) {
	token, exp, err := s.tokens.IssueSession(claims)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Issued{Token: token, ExpiresAt: exp, Claims: claims, View: s.projector.Project(claims)}, nil
}

// Refresh validates token and re-signs its claims unchanged with a new expiry.
// No user store is consulted, so profile changes only reach the token on the next sign-in.
func (s *Service) Refresh(ctx context.Context, token string) (*Issued, error) {
	claims, _, err := s.parse(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Sign(s.projector.Refresh(claims, nil))
}

// Inspect validates token and returns the session view.
func (s *Service) Inspect(ctx context.Context, token string) (sessiondomain.View, error) {
	claims, _, err := s.parse(ctx, token)
	if err != nil {
		return sessiondomain.View{}, err
	}
	return s.projector.Project(claims), nil
}

// SignOut revokes token until its expiry. An invalid or already revoked token yields ErrInvalidSession.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if s.revocations == nil {
		return ErrRevocationDisabled
	}
	_, meta, err := s.parse(ctx, token)
	if err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, meta.ID, meta.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// parse validates token and checks the revocation list. A revocation store failure is returned
// as an error distinct from ErrInvalidSession.
func (s *Service) parse(ctx context.Context, token string) (sessiondomain.Claims, sessiondomain.TokenMeta, error) {
	claims, meta, err := s.tokens.ParseSession(token)
	if err != nil {
		return sessiondomain.Claims{}, sessiondomain.TokenMeta{}, ErrInvalidSession
	}
	if s.revocations == nil || meta.ID == "" {
		return claims, meta, nil
	}
	revoked, err := s.revocations.Revoked(ctx, meta.ID)
	if err != nil {
		return sessiondomain.Claims{}, sessiondomain.TokenMeta{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return sessiondomain.Claims{}, sessiondomain.TokenMeta{}, ErrInvalidSession
	}
	return claims, meta, nil
}
