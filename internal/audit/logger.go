// Package audit records authentication decisions as OpenTelemetry log records.
package audit

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// Actions recorded for terminal decisions.
const (
	ActionLoginSuccess = "login_success"
	ActionLoginDenied  = "login_denied"
)

// Channels an attempt can arrive through.
const (
	ChannelCredentials = "credentials"
	ChannelProvider    = "provider"
)

const scopeName = "next-auth-practice/audit"

// Event is one terminal decision. It never carries passwords, digests or tokens.
type Event struct {
	Action   string
	Channel  string
	Provider string // empty for credential attempts
	Reason   string // denial reason code; empty on success
	UserID   string // set only on success
	At       time.Time
}

// DecisionLogger records decisions. LogDecision is best-effort and never affects the caller.
type DecisionLogger interface {
	LogDecision(ctx context.Context, e Event)
}

// Logger implements DecisionLogger by emitting one OTel log record per event.
type Logger struct {
	logger otellog.Logger
}

// NewLogger returns a Logger emitting through lp. A nil lp uses the global LoggerProvider.
func NewLogger(lp otellog.LoggerProvider) *Logger {
	if lp == nil {
		lp = global.GetLoggerProvider()
	}
	return &Logger{logger: lp.Logger(scopeName)}
}

// LogDecision emits e as a log record. Denials are recorded at WARN, successes at INFO.
func (l *Logger) LogDecision(ctx context.Context, e Event) {
	if l == nil || l.logger == nil {
		return
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var rec otellog.Record
	rec.SetTimestamp(at)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetBody(otellog.StringValue(e.Action))
	if e.Action == ActionLoginDenied {
		rec.SetSeverity(otellog.SeverityWarn)
		rec.SetSeverityText("WARN")
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetSeverityText("INFO")
	}
	rec.AddAttributes(
		otellog.String("action", e.Action),
		otellog.String("channel", e.Channel),
	)
	if e.Provider != "" {
		rec.AddAttributes(otellog.String("provider", e.Provider))
	}
	if e.Reason != "" {
		rec.AddAttributes(otellog.String("reason", e.Reason))
	}
	if e.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", e.UserID))
	}
	l.logger.Emit(ctx, rec)
}

// Nop discards every event.
type Nop struct{}

// LogDecision implements DecisionLogger.
func (Nop) LogDecision(context.Context, Event) {}
