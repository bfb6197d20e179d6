package service

import (
	"context"
	"fmt"
	"log"

	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
	userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

// UserFinder is the minimal user lookup needed by the credential path.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// PasswordVerifier compares a password against a stored digest. *security.VerifierPool implements it.
type PasswordVerifier interface {
	Verify(ctx context.Context, digest string, password []byte) (bool, error)
}

// Rehasher upgrades digests produced by an outdated algorithm or cost. *security.Passwords implements it.
type Rehasher interface {
	NeedsRehash(digest string) bool
	Hash(password []byte) (string, error)
}

// PasswordUpdater persists an upgraded digest.
type PasswordUpdater interface {
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

// CredentialValidator decides email/password attempts.
type CredentialValidator struct {
	users    UserFinder
	verifier PasswordVerifier
	rehasher Rehasher
	updater  PasswordUpdater
}

// NewCredentialValidator returns a CredentialValidator reading users and verifying with verifier.
func NewCredentialValidator(users UserFinder, verifier PasswordVerifier) *CredentialValidator {
	return &CredentialValidator{users: users, verifier: verifier}
}

// WithRehash enables transparent digest upgrades after a successful verification.
// Upgrades are best-effort and never change the decision.
func (v *CredentialValidator) WithRehash(r Rehasher, u PasswordUpdater) *CredentialValidator {
	v.rehasher = r
	v.updater = u
	return v
}

// Validate decides a. Structural validation runs before any store access. Store and verifier
// failures are returned as errors, never as denials.
func (v *CredentialValidator) Validate(ctx context.Context, a identitydomain.CredentialAttempt) (identitydomain.Decision, error) {
	if err := validateEmail(a.Email); err != nil {
		return identitydomain.Deny(identitydomain.InvalidCredentials), nil
	}
	if err := validatePassword(a.Password); err != nil {
		return identitydomain.Deny(identitydomain.InvalidCredentials), nil
	}

	u, err := v.users.FindUserByEmail(ctx, a.Email)
	if err != nil {
		return identitydomain.Decision{}, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return identitydomain.Deny(identitydomain.UserNotFound), nil
	}
	if !u.HasPassword() {
		return identitydomain.Deny(identitydomain.OAuthOnly), nil
	}

	ok, err := v.verifier.Verify(ctx, u.PasswordHash, []byte(a.Password))
	if err != nil {
		return identitydomain.Decision{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return identitydomain.Deny(identitydomain.InvalidPassword), nil
	}
	v.maybeRehash(ctx, u, a.Password)
	return identitydomain.Allow(u), nil
}

func (v *CredentialValidator) maybeRehash(ctx context.Context, u *userdomain.User, password string) {
	if v.rehasher == nil || v.updater == nil || !v.rehasher.NeedsRehash(u.PasswordHash) {
		return
	}
	digest, err := v.rehasher.Hash([]byte(password))
	if err != nil {
		log.Printf("auth: rehash for user %s failed: %v", u.ID, err)
		return
	}
	// The password may only fit a legacy algorithm (bcrypt's 72-byte limit); keep the stored digest.
	if v.rehasher.NeedsRehash(digest) {
		return
	}
	if err := v.updater.SetPasswordHash(ctx, u.ID, digest); err != nil {
		log.Printf("auth: store rehashed digest for user %s failed: %v", u.ID, err)
	}
}
