package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/identity/service"
)

func linkInputs() map[string]identitydomain.LinkInput {
	google := &accountdomain.Account{UserID: "u1", Provider: accountdomain.ProviderGoogle, ProviderAccountID: "g-1"}
	github := &accountdomain.Account{UserID: "u1", Provider: accountdomain.ProviderGitHub, ProviderAccountID: "gh-1"}
	return map[string]identitydomain.LinkInput{
		"new email":              {Provider: accountdomain.ProviderGoogle, ProviderAccountID: "g-1"},
		"linked same id":         {UserExists: true, Provider: accountdomain.ProviderGoogle, ProviderAccountID: "g-1", Accounts: []*accountdomain.Account{google}},
		"linked other id":        {UserExists: true, Provider: accountdomain.ProviderGoogle, ProviderAccountID: "g-2", Accounts: []*accountdomain.Account{google}},
		"other provider linked":  {UserExists: true, Provider: accountdomain.ProviderKeycloak, ProviderAccountID: "k-1", Accounts: []*accountdomain.Account{google, github}},
		"second of two linked":   {UserExists: true, Provider: accountdomain.ProviderGitHub, ProviderAccountID: "gh-1", Accounts: []*accountdomain.Account{google, github}},
		"password only user":     {UserExists: true, Provider: accountdomain.ProviderGoogle, ProviderAccountID: "g-1"},
		"nil account is ignored": {UserExists: true, Provider: accountdomain.ProviderGoogle, ProviderAccountID: "g-1", Accounts: []*accountdomain.Account{nil}},
	}
}

func TestOPALinkEvaluator_AgreesWithNativeRule(t *testing.T) {
	ctx := context.Background()
	for _, strict := range []bool{false, true} {
		e, err := NewOPALinkEvaluator(ctx, "", Options{RequireAccountIDMatch: strict})
		if err != nil {
			t.Fatalf("NewOPALinkEvaluator: %v", err)
		}
		native := service.NativeLinkRule{Options: service.LinkingOptions{RequireAccountIDMatch: strict}}
		for name, in := range linkInputs() {
			want, err := native.Evaluate(ctx, in)
			if err != nil {
				t.Fatalf("native %s: %v", name, err)
			}
			got, err := e.Evaluate(ctx, in)
			if err != nil {
				t.Fatalf("opa %s: %v", name, err)
			}
			if got != want {
				t.Errorf("strict=%v %s: opa = %s, native = %s", strict, name, got, want)
			}
		}
	}
}

func TestOPALinkEvaluator_DefaultVerdicts(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPALinkEvaluator(ctx, "", Options{})
	if err != nil {
		t.Fatalf("NewOPALinkEvaluator: %v", err)
	}
	inputs := linkInputs()
	expect := map[string]identitydomain.LinkVerdict{
		"new email":             identitydomain.VerdictAllowCreate,
		"linked same id":        identitydomain.VerdictAllow,
		"other provider linked": identitydomain.VerdictDenyConflict,
		"password only user":    identitydomain.VerdictDenyConflict,
	}
	for name, want := range expect {
		got, err := e.Evaluate(ctx, inputs[name])
		if err != nil {
			t.Fatalf("Evaluate %s: %v", name, err)
		}
		if got != want {
			t.Errorf("%s: verdict = %s, want %s", name, got, want)
		}
	}
}

func TestOPALinkEvaluator_HealthCheck(t *testing.T) {
	e, err := NewOPALinkEvaluator(context.Background(), "", Options{})
	if err != nil {
		t.Fatalf("NewOPALinkEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPALinkEvaluator_CustomModule(t *testing.T) {
	// Links any verified provider to an existing user.
	const module = `package auth.linking

default decision = "allow_link"

decision = "allow_create" if {
	not input.user_exists
}

decision = "allow" if {
	input.user_exists
	some i
	input.linked_providers[i] == input.provider
}
`
	ctx := context.Background()
	e, err := NewOPALinkEvaluator(ctx, module, Options{})
	if err != nil {
		t.Fatalf("NewOPALinkEvaluator: %v", err)
	}
	got, err := e.Evaluate(ctx, linkInputs()["password only user"])
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != identitydomain.VerdictAllowLink {
		t.Errorf("verdict = %s, want allow_link", got)
	}
}

func TestOPALinkEvaluator_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.rego")
	if err := os.WriteFile(path, []byte(DefaultLinkPolicy), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	e, err := LoadOPALinkEvaluator(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("LoadOPALinkEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if _, err := LoadOPALinkEvaluator(context.Background(), filepath.Join(t.TempDir(), "missing.rego"), Options{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestOPALinkEvaluator_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewOPALinkEvaluator(ctx, "package auth.linking\n\ndecision = ", Options{}); err == nil {
		t.Fatal("expected compile error")
	}

	testCases := []struct {
		name   string
		module string
		want   error
	}{
		{"undefined decision", "package auth.linking\n\nother = 1\n", ErrNoDecision},
		{"unknown verdict", "package auth.linking\n\ndecision = \"maybe\"\n", nil},
		{"non-string decision", "package auth.linking\n\ndecision = 7\n", nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewOPALinkEvaluator(ctx, tc.module, Options{})
			if err != nil {
				t.Fatalf("NewOPALinkEvaluator: %v", err)
			}
			_, err = e.Evaluate(ctx, linkInputs()["new email"])
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
