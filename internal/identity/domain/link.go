package domain

import (
	"context"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
)

// LinkVerdict is the outcome of evaluating a provider sign-in against the accounts already
// linked to its email.
type LinkVerdict string

const (
	// VerdictAllow signs in an existing user; nothing is created.
	VerdictAllow LinkVerdict = "allow"
	// VerdictAllowCreate signs in a new user; the user and its account are created.
	VerdictAllowCreate LinkVerdict = "allow_create"
	// VerdictAllowLink signs in an existing user and links the provider to it. The built-in
	// rule never returns it; custom policies may.
	VerdictAllowLink LinkVerdict = "allow_link"
	// VerdictDenyConflict refuses the sign-in with EmailConflict.
	VerdictDenyConflict LinkVerdict = "deny_conflict"
)

// Valid reports whether v is one of the known verdicts.
func (v LinkVerdict) Valid() bool {
	switch v {
	case VerdictAllow, VerdictAllowCreate, VerdictAllowLink, VerdictDenyConflict:
		return true
	}
	return false
}

// LinkInput is everything a link rule may look at. Accounts is empty when UserExists is false.
type LinkInput struct {
	UserExists        bool
	Provider          accountdomain.Provider
	ProviderAccountID string
	Accounts          []*accountdomain.Account
}

// LinkRule turns a LinkInput into a verdict. Implementations must be pure and safe for
// concurrent use.
type LinkRule interface {
	Evaluate(ctx context.Context, in LinkInput) (LinkVerdict, error)
}
