// Package health reports readiness of the stores and engines the authentication core depends on.
package health

import (
	"context"
	"time"
)

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by the OPA link evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Status of one component or of the whole report.
type Status string

const (
	StatusServing    Status = "serving"
	StatusNotServing Status = "not_serving"
)

// Report is the result of one Check.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]string `json:"components"` // component name -> "ok" or the error text
}

// Checker checks each configured dependency. Nil dependencies are skipped.
type Checker struct {
	DB      Pinger
	Policy  PolicyChecker
	Extra   map[string]func(ctx context.Context) error
	Timeout time.Duration // per component; default 2s
}

// Check runs every configured check and returns serving only if all pass.
func (c *Checker) Check(ctx context.Context) Report {
	r := Report{Status: StatusServing, Components: map[string]string{}}
	run := func(name string, fn func(context.Context) error) {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(cctx); err != nil {
			r.Status = StatusNotServing
			r.Components[name] = err.Error()
			return
		}
		r.Components[name] = "ok"
	}
	if c.DB != nil {
		run("database", c.DB.PingContext)
	}
	if c.Policy != nil {
		run("link_policy", c.Policy.HealthCheck)
	}
	for name, fn := range c.Extra {
		if fn != nil {
			run(name, fn)
		}
	}
	return r
}
