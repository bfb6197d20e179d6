package domain

import accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"

// LoginAttempt is one sign-in request. It is either a CredentialAttempt or a ProviderAttempt
// and lives only for the duration of one authorization call.
type LoginAttempt interface {
	loginAttempt()
}

// CredentialAttempt is an email/password sign-in.
type CredentialAttempt struct {
	Email    string
	Password string
}

// ProviderAttempt is a sign-in vouched for by an identity provider. VerifiedEmail has already
// been verified by the provider and is not re-verified here.
type ProviderAttempt struct {
	Provider          accountdomain.Provider
	VerifiedEmail     string
	ProviderAccountID string
	Name              string // display name reported by the provider; used when a user is created
}

func (CredentialAttempt) loginAttempt() {}
func (ProviderAttempt) loginAttempt()   {}

// Identity is a normalized external identity returned by an OAuth provider after the handshake.
// It contains facts only, no decisions.
type Identity struct {
	Provider          accountdomain.Provider
	ProviderAccountID string // provider-scoped subject
	Email             string
	EmailVerified     bool
	Name              string
}

// Attempt converts the identity into a ProviderAttempt.
func (i *Identity) Attempt() ProviderAttempt {
	return ProviderAttempt{
		Provider:          i.Provider,
		VerifiedEmail:     i.Email,
		ProviderAccountID: i.ProviderAccountID,
		Name:              i.Name,
	}
}
