package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	accountdomain "github.com/abhicommands/Next-Auth-Practice/internal/account/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/audit"
	identitydomain "github.com/abhicommands/Next-Auth-Practice/internal/identity/domain"
	"github.com/abhicommands/Next-Auth-Practice/internal/identity/provider"
	"github.com/abhicommands/Next-Auth-Practice/internal/session"
	sessiondomain "github.com/abhicommands/Next-Auth-Practice/internal/session/domain"
	userdomain "github.com/abhicommands/Next-Auth-Practice/internal/user/domain"
)

// Sentinel errors for the orchestrator. None of them is a denial: they mean the attempt could
// not be evaluated.
var (
	ErrUnknownProvider = provider.ErrUnknownProvider
	ErrInvalidIdentity = errors.New("provider identity is missing a verified email or account id")
	ErrNilAttempt      = errors.New("login attempt is nil")
)

const instrumentationName = "next-auth-practice/identity"

// Config is fixed at construction and never mutated.
type Config struct {
	// Providers lists the identity providers accepted on the provider path. When nil, provider
	// attempts are only checked for a non-empty provider name and CompleteProviderLogin is unavailable.
	Providers *provider.Registry
	Linking   LinkingOptions

	// TracerProvider and MeterProvider default to the global providers when nil.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Store is the persistence the orchestrator needs across both paths.
type Store interface {
	UserFinder
	AccountFinder
	CreateAccount(ctx context.Context, a *accountdomain.Account) error
	CreateUserWithAccount(ctx context.Context, u *userdomain.User, a *accountdomain.Account) error
}

// TokenIssuer signs session claims. *security.TokenProvider implements it.
type TokenIssuer interface {
	IssueSession(claims sessiondomain.Claims) (string, time.Time, error)
}

// Outcome is the result of one attempt. Token, ExpiresAt, Claims and View are set only when
// State is StateAllowed. Trace lists every state the attempt passed through.
type Outcome struct {
	State     identitydomain.State
	Decision  identitydomain.Decision
	Claims    sessiondomain.Claims
	View      sessiondomain.View
	Token     string
	ExpiresAt time.Time
	Trace     []identitydomain.State
}

func (o *Outcome) enter(s identitydomain.State) {
	o.State = s
	o.Trace = append(o.Trace, s)
}

// Orchestrator sequences validation, linking and session issuance for each attempt. It holds no
// per-attempt state and is safe for concurrent use.
type Orchestrator struct {
	cfg         Config
	store       Store
	credentials *CredentialValidator
	linking     LinkingPolicy
	tokens      TokenIssuer
	projector   session.Projector
	audit       audit.DecisionLogger
	tracer      trace.Tracer
	decisions   metric.Int64Counter
	now         func() time.Time
}

// NewOrchestrator returns an Orchestrator. rule may be nil to use NativeLinkRule with cfg.Linking;
// auditLog may be nil to discard decision events.
func NewOrchestrator(
	cfg Config,
	store Store,
	credentials *CredentialValidator,
	rule identitydomain.LinkRule,
	tokens TokenIssuer,
	auditLog audit.DecisionLogger,
) *Orchestrator {
	if rule == nil {
		rule = NativeLinkRule{Options: cfg.Linking}
	}
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	counter, err := mp.Meter(instrumentationName).Int64Counter(
		"auth.decisions",
		metric.WithDescription("Terminal authentication decisions by channel, outcome and reason."),
	)
	if err != nil {
		otel.Handle(err)
	}
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		credentials: credentials,
		linking:     NewAccountLinkingPolicy(store, rule),
		tokens:      tokens,
		audit:       auditLog,
		tracer:      tp.Tracer(instrumentationName),
		decisions:   counter,
		now:         time.Now,
	}
}

// Authorize dispatches a to the credential or provider path.
func (o *Orchestrator) Authorize(ctx context.Context, a identitydomain.LoginAttempt) (*Outcome, error) {
	switch at := a.(type) {
	case identitydomain.CredentialAttempt:
		return o.AuthorizeCredentials(ctx, at)
	case *identitydomain.CredentialAttempt:
		if at == nil {
			return nil, ErrNilAttempt
		}
		return o.AuthorizeCredentials(ctx, *at)
	case identitydomain.ProviderAttempt:
		return o.AuthorizeProvider(ctx, at)
	case *identitydomain.ProviderAttempt:
		if at == nil {
			return nil, ErrNilAttempt
		}
		return o.AuthorizeProvider(ctx, *at)
	default:
		return nil, ErrNilAttempt
	}
}

// AuthorizeCredentials runs Received → Allowed|Denied through the CredentialValidator.
func (o *Orchestrator) AuthorizeCredentials(ctx context.Context, a identitydomain.CredentialAttempt) (*Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "auth.authorize", trace.WithAttributes(attribute.String("auth.channel", audit.ChannelCredentials)))
	defer span.End()

	out := &Outcome{}
	out.enter(identitydomain.StateReceived)

	decision, err := o.credentials.Validate(ctx, a)
	if err != nil {
		return nil, o.fail(ctx, span, audit.ChannelCredentials, err)
	}
	return o.finish(ctx, span, out, decision, audit.ChannelCredentials, "")
}

// AuthorizeProvider runs Received → Validating → Deciding → Allowed|Denied for an identity the
// provider has already vouched for.
func (o *Orchestrator) AuthorizeProvider(ctx context.Context, a identitydomain.ProviderAttempt) (*Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "auth.authorize", trace.WithAttributes(
		attribute.String("auth.channel", audit.ChannelProvider),
		attribute.String("auth.provider", string(a.Provider)),
	))
	defer span.End()

	out := &Outcome{}
	out.enter(identitydomain.StateReceived)
	out.enter(identitydomain.StateValidating)
	if err := o.checkProviderAttempt(a); err != nil {
		return nil, o.fail(ctx, span, audit.ChannelProvider, err)
	}
	return o.decideProvider(ctx, span, out, a)
}

// CompleteProviderLogin redeems an authorization code with the named provider and authorizes the
// identity it returns. Handshake failures are returned as errors, not denials.
func (o *Orchestrator) CompleteProviderLogin(ctx context.Context, name accountdomain.Provider, code, codeVerifier string) (*Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "auth.authorize", trace.WithAttributes(
		attribute.String("auth.channel", audit.ChannelProvider),
		attribute.String("auth.provider", string(name)),
	))
	defer span.End()

	out := &Outcome{}
	out.enter(identitydomain.StateReceived)
	p, err := o.cfg.Providers.Get(name)
	if err != nil {
		return nil, o.fail(ctx, span, audit.ChannelProvider, err)
	}

	out.enter(identitydomain.StateValidating)
	identity, err := p.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return nil, o.fail(ctx, span, audit.ChannelProvider, fmt.Errorf("exchange code with %s: %w", name, err))
	}
	if identity == nil || !identity.EmailVerified {
		return nil, o.fail(ctx, span, audit.ChannelProvider, ErrInvalidIdentity)
	}
	attempt := identity.Attempt()
	attempt.Provider = name
	if err := o.checkProviderAttempt(attempt); err != nil {
		return nil, o.fail(ctx, span, audit.ChannelProvider, err)
	}
	return o.decideProvider(ctx, span, out, attempt)
}

func (o *Orchestrator) checkProviderAttempt(a identitydomain.ProviderAttempt) error {
	if a.Provider == "" {
		return fmt.Errorf("%w: empty provider name", ErrUnknownProvider)
	}
	if o.cfg.Providers != nil && !o.cfg.Providers.Has(a.Provider) {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, a.Provider)
	}
	if a.VerifiedEmail == "" || a.ProviderAccountID == "" {
		return ErrInvalidIdentity
	}
	return nil
}

func (o *Orchestrator) decideProvider(ctx context.Context, span trace.Span, out *Outcome, a identitydomain.ProviderAttempt) (*Outcome, error) {
	out.enter(identitydomain.StateDeciding)
	ld, err := o.linking.Decide(ctx, a)
	if err != nil {
		return nil, o.fail(ctx, span, audit.ChannelProvider, err)
	}
	if ld.Allowed() {
		if err := o.persistLink(ctx, ld, a); err != nil {
			return nil, o.fail(ctx, span, audit.ChannelProvider, err)
		}
	}
	return o.finish(ctx, span, out, ld.Decision, audit.ChannelProvider, string(a.Provider))
}

// persistLink performs the store writes the link decision asks for. A unique violation from a
// concurrent first sign-in surfaces as an error; the attempt is not retried.
func (o *Orchestrator) persistLink(ctx context.Context, ld LinkDecision, a identitydomain.ProviderAttempt) error {
	if !ld.CreateUser && !ld.CreateAccount {
		return nil
	}
	now := o.now().UTC()
	u := ld.User()
	account := &accountdomain.Account{
		ID:                uuid.New().String(),
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		CreatedAt:         now,
	}
	if ld.CreateUser {
		u.ID = uuid.New().String()
		u.CreatedAt = now
		u.UpdatedAt = now
		account.UserID = u.ID
		if err := o.store.CreateUserWithAccount(ctx, u, account); err != nil {
			return fmt.Errorf("create user with account: %w", err)
		}
		return nil
	}
	account.UserID = u.ID
	if err := o.store.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, out *Outcome, d identitydomain.Decision, channel, providerName string) (*Outcome, error) {
	out.Decision = d
	event := audit.Event{Channel: channel, Provider: providerName, At: o.now().UTC()}

	if !d.Allowed() {
		out.enter(identitydomain.StateDenied)
		event.Action = audit.ActionLoginDenied
		event.Reason = d.Reason().String()
		o.record(ctx, span, channel, "denied", event.Reason)
		o.audit.LogDecision(ctx, event)
		return out, nil
	}

	claims := o.projector.Issue(d.User())
	token, exp, err := o.tokens.IssueSession(claims)
	if err != nil {
		return nil, o.fail(ctx, span, channel, fmt.Errorf("issue session: %w", err))
	}
	out.enter(identitydomain.StateAllowed)
	out.Claims = claims
	out.View = o.projector.Project(claims)
	out.Token = token
	out.ExpiresAt = exp

	event.Action = audit.ActionLoginSuccess
	event.UserID = claims.ID
	o.record(ctx, span, channel, "allowed", "")
	o.audit.LogDecision(ctx, event)
	return out, nil
}

func (o *Orchestrator) record(ctx context.Context, span trace.Span, channel, outcome, reason string) {
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if reason != "" {
		span.SetAttributes(attribute.String("auth.reason", reason))
	}
	if o.decisions != nil {
		o.decisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("outcome", outcome),
			attribute.String("reason", reason),
		))
	}
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, channel string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "authorization could not be evaluated")
	if o.decisions != nil {
		o.decisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("outcome", "error"),
			attribute.String("reason", ""),
		))
	}
	return err
}
