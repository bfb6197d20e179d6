// Package engine evaluates account-linking rules written in Rego with the embedded OPA engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
)

const decisionQuery = "data.auth.linking.decision"

// DefaultLinkPolicy is the built-in rule: a new email creates a user, an email linked to the
// attempting provider signs in, anything else conflicts. With require_account_id_match set the
// stored provider account id must also match.
const DefaultLinkPolicy = `package auth.linking

default decision = "deny_conflict"

decision = "allow_create" if {
	not input.user_exists
}

decision = "allow" if {
	input.user_exists
	provider_linked
	not input.require_account_id_match
}

decision = "allow" if {
	input.user_exists
	account_matched
	input.require_account_id_match
}

provider_linked if {
	some i
	input.linked_providers[i] == input.provider
}

account_matched if {
	some i
	a := input.linked_accounts[i]
	a.provider == input.provider
	a.provider_account_id == input.provider_account_id
}
`

// ErrNoDecision is returned when the policy produces no decision for an input.
var ErrNoDecision = errors.New("link policy produced no decision")

// Options are passed to the policy as input flags.
type Options struct {
	RequireAccountIDMatch bool
}

// OPALinkEvaluator is an identitydomain.LinkRule backed by a precompiled Rego query.
// Safe for concurrent use.
type OPALinkEvaluator struct {
	query rego.PreparedEvalQuery
	opts  Options
}

// NewOPALinkEvaluator compiles module, or DefaultLinkPolicy when module is empty. The module
// must define data.auth.linking.decision.
func NewOPALinkEvaluator(ctx context.Context, module string, opts Options) (*OPALinkEvaluator, error) {
	if module == "" {
		module = DefaultLinkPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"link_policy.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile link policy: %w", err)
	}
	query, err := rego.New(
		rego.Query(decisionQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare link policy: %w", err)
	}
	return &OPALinkEvaluator{query: query, opts: opts}, nil
}

// LoadOPALinkEvaluator reads a Rego module from path and compiles it.
func LoadOPALinkEvaluator(ctx context.Context, path string, opts Options) (*OPALinkEvaluator, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read link policy: %w", err)
	}
	return NewOPALinkEvaluator(ctx, string(b), opts)
}

// Evaluate implements identitydomain.LinkRule.
func (e *OPALinkEvaluator) Evaluate(ctx context.Context, in identitydomain.LinkInput) (identitydomain.LinkVerdict, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(e.buildInput(in)))
	if err != nil {
		return "", fmt.Errorf("eval link policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", ErrNoDecision
	}
	s, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("link policy decision is %T, want string", rs[0].Expressions[0].Value)
	}
	verdict := identitydomain.LinkVerdict(s)
	if !verdict.Valid() {
		return "", fmt.Errorf("link policy returned unknown decision %q", s)
	}
	return verdict, nil
}

// HealthCheck evaluates the compiled policy against a new-user input.
func (e *OPALinkEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Evaluate(ctx, identitydomain.LinkInput{Provider: accountdomain.ProviderGoogle, ProviderAccountID: "health"})
	return err
}

func (e *OPALinkEvaluator) buildInput(in identitydomain.LinkInput) map[string]interface{} {
	accounts := make([]interface{}, 0, len(in.Accounts))
	for _, a := range in.Accounts {
		if a == nil {
			continue
		}
		accounts = append(accounts, map[string]interface{}{
			"provider":            string(a.Provider),
			"provider_account_id": a.ProviderAccountID,
		})
	}
	providers := make([]interface{}, 0, len(in.Accounts))
	for _, name := range accountdomain.LinkedProviders(in.Accounts).Names() {
		providers = append(providers, name)
	}
	return map[string]interface{}{
		"user_exists":              in.UserExists,
		"provider":                 string(in.Provider),
		"provider_account_id":      in.ProviderAccountID,
		"linked_providers":         providers,
		"linked_accounts":          accounts,
		"require_account_id_match": e.opts.RequireAccountIDMatch,
	}
}
