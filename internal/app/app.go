// Package app builds the authentication core from configuration.
package app

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/audit"
	"github.com/abhicommands/Next-Auth-Practice/internal/config"
	"github.com/abhicommands/Next-Auth-Practice/internal/db"
	"github.com/abhicommands/Next-Auth-Practice/internal/health"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/identity/provider"
	"github.com/abhicommands/Next-Auth-Practice/internal/identity/provider/oidc"
	"github.com/abhicommands/Next-Auth-Practice/internal/identity/service"
	"github.com/abhicommands/Next-Auth-Practice/internal/policy/engine"
	"github.com/abhicommands/Next-Auth-Practice/internal/security"
	"github.com/abhicommands/Next-Auth-Practice/internal/session"
	"github.com/abhicommands/Next-Auth-Practice/internal/session/revocation"
	telemetryotel "github.com/abhicommands/Next-Auth-Practice/internal/telemetry/otel"
	"github.com/abhicommands/Next-Auth-Practice/internal/user/repository"
)

// App is the wired authentication core. Close releases everything New opened.
type App struct {
	Config       *config.Config
	DB           *sql.DB
	Store        repository.Repository
	Passwords    *security.Passwords
	Tokens       *security.TokenProvider
	Providers    *provider.Registry
	Orchestrator *service.Orchestrator
	Sessions     *session.Service
	Health       *health.Checker
	Telemetry    *telemetryotel.Providers

	closers []func(context.Context) error
}

// New wires every component described by cfg. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Health: &health.Checker{Extra: map[string]func(context.Context) error{}}}
	if err := a.init(ctx, cfg); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, cfg *config.Config) error {
	var err error
	a.Telemetry, err = telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		ServiceName: cfg.OTelServiceName,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.Telemetry.SetGlobal()
	a.closers = append(a.closers, a.Telemetry.Shutdown)

	if err = a.openStore(cfg); err != nil {
		return err
	}

	a.Passwords, err = NewPasswords(cfg)
	if err != nil {
		return err
	}
	pool := security.NewVerifierPool(a.Passwords, cfg.HashWorkers, a.Telemetry.MeterProvider)

	signer, pub, err := loadSigningKey(cfg)
	if err != nil {
		return err
	}
	a.Tokens, err = security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL())
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}

	if len(cfg.Providers) > 0 {
		a.Providers, err = newRegistry(ctx, cfg.Providers)
		if err != nil {
			return err
		}
	}

	rule, err := newLinkRule(ctx, cfg)
	if err != nil {
		return err
	}
	if checker, ok := rule.(health.PolicyChecker); ok {
		a.Health.Policy = checker
	}

	auditLog, err := a.newAuditLogger(cfg)
	if err != nil {
		return err
	}

	credentials := service.NewCredentialValidator(a.Store, pool).WithRehash(a.Passwords, a.Store)
	a.Orchestrator = service.NewOrchestrator(service.Config{
		Providers:      a.Providers,
		Linking:        service.LinkingOptions{RequireAccountIDMatch: cfg.LinkRequireAccountIDMatch},
		TracerProvider: a.Telemetry.TracerProvider,
		MeterProvider:  a.Telemetry.MeterProvider,
	}, a.Store, credentials, rule, a.Tokens, auditLog)

	a.Sessions = session.NewService(a.Tokens)
	if cfg.RedisURL != "" {
		client, err := revocation.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		a.Sessions.WithRevocations(revocation.NewRedisStore(client))
		a.Health.Extra["revocations"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return nil
}

func (a *App) openStore(cfg *config.Config) error {
	var err error
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		a.DB, err = db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		a.Store = repository.NewSQLiteRepository(a.DB)
	default:
		a.DB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.Store = repository.NewPostgresRepository(a.DB)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.DB.Close() })
	a.Health.DB = a.DB
	return nil
}

func (a *App) newAuditLogger(cfg *config.Config) (audit.DecisionLogger, error) {
	otelLog := audit.NewLogger(a.Telemetry.LoggerProvider)
	if cfg.AuditLokiURL == "" {
		return otelLog, nil
	}
	sink, err := audit.NewLokiSink(cfg.AuditLokiURL, cfg.OTelServiceName, nil)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sink.Close)
	return audit.Multi{otelLog, sink}, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewPasswords returns the configured hashing scheme. The algorithm not selected stays
// registered so existing digests keep verifying and are upgraded on the next sign-in.
func NewPasswords(cfg *config.Config) (*security.Passwords, error) {
	bcrypt := security.NewHasher(cfg.BcryptCost)
	argon, err := security.NewArgon2(security.Argon2Params{
		MemoryKB:    uint32(cfg.Argon2MemoryKB),
		Time:        uint32(cfg.Argon2Time),
		Parallelism: uint8(cfg.Argon2Parallelism),
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		return nil, fmt.Errorf("argon2: %w", err)
	}
	if cfg.PasswordAlgorithm == config.PasswordArgon2id {
		return security.NewPasswords(argon, bcrypt), nil
	}
	return security.NewPasswords(bcrypt, argon), nil
}

// loadSigningKey parses the configured key pair. Outside production a missing key is replaced by
// an ephemeral P-256 key, so tokens do not survive a restart.
func loadSigningKey(cfg *config.Config) (crypto.Signer, crypto.PublicKey, error) {
	if strings.TrimSpace(cfg.JWTPrivateKey) == "" {
		if cfg.Env == "production" {
			return nil, nil, errors.New("JWT_PRIVATE_KEY is required in production")
		}
		log.Printf("app: JWT_PRIVATE_KEY not set; using an ephemeral signing key")
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		return key, key.Public(), nil
	}
	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("jwt keys: %w", err)
	}
	return signer, pub, nil
}

func newRegistry(ctx context.Context, list []config.OIDCProvider) (*provider.Registry, error) {
	providers := make([]provider.OAuthProvider, 0, len(list))
	for _, p := range list {
		op, err := oidc.New(ctx, oidc.Config{
			Name:         accountdomain.Provider(p.Name),
			IssuerURL:    p.IssuerURL,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider %s: %w", p.Name, err)
		}
		providers = append(providers, op)
	}
	return provider.NewRegistry(providers...)
}

// newLinkRule returns the OPA evaluator when a Rego module is configured and the built-in rule otherwise.
func newLinkRule(ctx context.Context, cfg *config.Config) (identitydomain.LinkRule, error) {
	if cfg.LinkPolicyRego == "" {
		return service.NativeLinkRule{Options: service.LinkingOptions{RequireAccountIDMatch: cfg.LinkRequireAccountIDMatch}}, nil
	}
	e, err := engine.LoadOPALinkEvaluator(ctx, cfg.LinkPolicyRego, engine.Options{RequireAccountIDMatch: cfg.LinkRequireAccountIDMatch})
	if err != nil {
		return nil, err
	}
	if err := e.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("link policy: %w", err)
	}
	return e, nil
}
