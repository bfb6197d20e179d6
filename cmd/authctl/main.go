// authctl drives the authentication core from the command line.
//
//	authctl login -email a@example.com -password 'Secret1!'
//	authctl provider-login -provider google -email a@example.com -account-id 123
//	authctl authurl -provider google
//	authctl complete -provider google -code CODE -verifier VERIFIER
//	authctl refresh -token TOKEN
//	authctl inspect -token TOKEN
//	authctl signout -token TOKEN
//	authctl health
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/app"
	"github.com/abhicommands/Next-Auth-Practice/internal/config"
	"github.com/abhicommands/Next-Auth-Practice/internal/health"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/identity/provider"
	"github.com/abhicommands/Next-Auth-Practice/internal/identity/service"
)

// errDenied is returned when an attempt was decided but not allowed; the decision is still printed.
var errDenied = errors.New("sign-in denied")

const usage = `usage: authctl <command> [flags]

commands:
  login           email/password sign-in
  provider-login  sign-in with an identity already verified by a provider
  authurl         print the authorization URL and PKCE verifier for a provider
  complete        redeem an authorization code and sign in
  refresh         re-sign a session token with a fresh expiry
  inspect         print the session carried by a token
  signout         revoke a session token
  health          check the store, policy engine and revocation store
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "app:", err)
		os.Exit(1)
	}

	err = (&cli{app: a, out: os.Stdout}).run(ctx, os.Args[1:])

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := a.Close(shutdownCtx); cerr != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type cli struct {
	app *app.App
	out io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "login":
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		out, err := c.app.Orchestrator.Authorize(ctx, identitydomain.CredentialAttempt{Email: *email, Password: *password})
		return c.printOutcome(out, err)

	case "provider-login":
		name := fs.String("provider", "", "provider name")
		email := fs.String("email", "", "email verified by the provider")
		accountID := fs.String("account-id", "", "provider account id")
		display := fs.String("name", "", "display name")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		out, err := c.app.Orchestrator.Authorize(ctx, identitydomain.ProviderAttempt{
			Provider:          accountdomain.Provider(*name),
			VerifiedEmail:     *email,
			ProviderAccountID: *accountID,
			Name:              *display,
		})
		return c.printOutcome(out, err)

	case "authurl":
		name := fs.String("provider", "", "provider name")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		p, err := c.provider(*name)
		if err != nil {
			return err
		}
		pkce := provider.NewPKCE()
		state := uuid.NewString()
		return c.print(map[string]string{
			"url":      p.AuthCodeURL(state, pkce.Challenge),
			"state":    state,
			"verifier": pkce.Verifier,
		})

	case "complete":
		name := fs.String("provider", "", "provider name")
		code := fs.String("code", "", "authorization code")
		verifier := fs.String("verifier", "", "PKCE verifier printed by authurl")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		out, err := c.app.Orchestrator.CompleteProviderLogin(ctx, accountdomain.Provider(*name), *code, *verifier)
		return c.printOutcome(out, err)

	case "refresh":
		token := fs.String("token", "", "session token")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		issued, err := c.app.Sessions.Refresh(ctx, *token)
		if err != nil {
			return err
		}
		return c.print(sessionOutput{Token: issued.Token, ExpiresAt: issued.ExpiresAt, Session: issued.View})

	case "inspect":
		token := fs.String("token", "", "session token")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		view, err := c.app.Sessions.Inspect(ctx, *token)
		if err != nil {
			return err
		}
		return c.print(view)

	case "signout":
		token := fs.String("token", "", "session token")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := c.app.Sessions.SignOut(ctx, *token); err != nil {
			return err
		}
		return c.print(map[string]bool{"signed_out": true})

	case "health":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		report := c.app.Health.Check(ctx)
		if err := c.print(report); err != nil {
			return err
		}
		if report.Status != health.StatusServing {
			return errors.New("not serving")
		}
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func (c *cli) provider(name string) (provider.OAuthProvider, error) {
	if c.app.Providers == nil {
		return nil, errors.New("no identity providers configured (set OIDC_PROVIDERS)")
	}
	return c.app.Providers.Get(accountdomain.Provider(name))
}

type outcomeOutput struct {
	Outcome   string     `json:"outcome"`
	Reason    string     `json:"reason,omitempty"`
	Message   string     `json:"message,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Session   any        `json:"session,omitempty"`
	Trace     []string   `json:"trace"`
}

type sessionOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Session   any       `json:"session"`
}

func (c *cli) printOutcome(out *service.Outcome, err error) error {
	if err != nil {
		return err
	}
	res := outcomeOutput{Outcome: string(out.State)}
	for _, s := range out.Trace {
		res.Trace = append(res.Trace, string(s))
	}
	if out.State != identitydomain.StateAllowed {
		res.Reason = out.Decision.Reason().String()
		res.Message = out.Decision.Reason().Message()
		if perr := c.print(res); perr != nil {
			return perr
		}
		return errDenied
	}
	res.Token = out.Token
	exp := out.ExpiresAt
	res.ExpiresAt = &exp
	res.Session = out.View
	return c.print(res)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
