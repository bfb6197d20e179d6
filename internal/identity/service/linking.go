package service

import (
	"context"
	"fmt"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
	userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

// LinkingOptions tunes the built-in link rule.
type LinkingOptions struct {
	// RequireAccountIDMatch denies a sign-in for an already linked provider when the provider
	// account id differs from the stored one. Off by default: any account for the same provider
	// allows, so the email stays the trust anchor.
	RequireAccountIDMatch bool
}

// AccountFinder looks up a user together with its linked accounts.
type AccountFinder interface {
	FindUserWithAccounts(ctx context.Context, email string) (*userdomain.User, []*accountdomain.Account, error)
}

// LinkDecision is the policy result for one provider attempt. When CreateUser is set the
// decision's user is a not-yet-persisted record built from the attempt.
type LinkDecision struct {
	identitydomain.Decision
	CreateUser    bool
	CreateAccount bool
}

// LinkingPolicy decides provider attempts.
type LinkingPolicy interface {
	Decide(ctx context.Context, a identitydomain.ProviderAttempt) (LinkDecision, error)
}

// NativeLinkRule is the built-in link rule: a new email creates a user, an email already linked
// to the attempting provider signs in, anything else is an email conflict.
type NativeLinkRule struct {
	Options LinkingOptions
}

// Evaluate implements identitydomain.LinkRule.
func (r NativeLinkRule) Evaluate(_ context.Context, in identitydomain.LinkInput) (identitydomain.LinkVerdict, error) {
	if !in.UserExists {
		return identitydomain.VerdictAllowCreate, nil
	}
	if !accountdomain.LinkedProviders(in.Accounts).Has(in.Provider) {
		return identitydomain.VerdictDenyConflict, nil
	}
	if r.Options.RequireAccountIDMatch && !hasAccount(in.Accounts, in.Provider, in.ProviderAccountID) {
		return identitydomain.VerdictDenyConflict, nil
	}
	return identitydomain.VerdictAllow, nil
}

func hasAccount(accounts []*accountdomain.Account, p accountdomain.Provider, id string) bool {
	for _, a := range accounts {
		if a != nil && a.Provider == p && a.ProviderAccountID == id {
			return true
		}
	}
	return false
}

// AccountLinkingPolicy reads the current user and accounts for the attempt's email and applies
// a LinkRule to them. It never re-verifies the email.
type AccountLinkingPolicy struct {
	accounts AccountFinder
	rule     identitydomain.LinkRule
}

// NewAccountLinkingPolicy returns a policy over accounts. A nil rule selects NativeLinkRule
// with default options.
func NewAccountLinkingPolicy(accounts AccountFinder, rule identitydomain.LinkRule) *AccountLinkingPolicy {
	if rule == nil {
		rule = NativeLinkRule{}
	}
	return &AccountLinkingPolicy{accounts: accounts, rule: rule}
}

// Decide implements LinkingPolicy.
func (p *AccountLinkingPolicy) Decide(ctx context.Context, a identitydomain.ProviderAttempt) (LinkDecision, error) {
	u, accounts, err := p.accounts.FindUserWithAccounts(ctx, a.VerifiedEmail)
	if err != nil {
		return LinkDecision{}, fmt.Errorf("find user with accounts: %w", err)
	}
	verdict, err := p.rule.Evaluate(ctx, identitydomain.LinkInput{
		UserExists:        u != nil,
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		Accounts:          accounts,
	})
	if err != nil {
		return LinkDecision{}, fmt.Errorf("evaluate link rule: %w", err)
	}

	switch verdict {
	case identitydomain.VerdictAllowCreate:
		if u != nil {
			return LinkDecision{}, fmt.Errorf("link rule returned %s for existing user", verdict)
		}
		prospective := &userdomain.User{Email: a.VerifiedEmail, Name: a.Name}
		return LinkDecision{Decision: identitydomain.Allow(prospective), CreateUser: true, CreateAccount: true}, nil
	case identitydomain.VerdictAllow, identitydomain.VerdictAllowLink:
		if u == nil {
			return LinkDecision{}, fmt.Errorf("link rule returned %s without a user", verdict)
		}
		return LinkDecision{
			Decision:      identitydomain.Allow(u),
			CreateAccount: verdict == identitydomain.VerdictAllowLink,
		}, nil
	case identitydomain.VerdictDenyConflict:
		return LinkDecision{Decision: identitydomain.Deny(identitydomain.EmailConflict)}, nil
	default:
		return LinkDecision{}, fmt.Errorf("link rule returned unknown verdict %q", verdict)
	}
}
