package security

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"
)

// DigestVerifier verifies a password against a stored digest. *Passwords implements it.
type DigestVerifier interface {
	Verify(digest string, password []byte) (bool, error)
}

// VerifierPool runs password verification on a bounded set of workers so slow
// hash comparisons cannot starve unrelated attempts of CPU. Safe for concurrent use.
type VerifierPool struct {
	verifier DigestVerifier
	sem      *semaphore.Weighted
	duration metric.Float64Histogram
}

// NewVerifierPool returns a pool that allows at most workers concurrent verifications.
// workers <= 0 selects runtime.NumCPU(). mp may be nil to use the global MeterProvider.
func NewVerifierPool(verifier DigestVerifier, workers int, mp metric.MeterProvider) *VerifierPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	hist, err := mp.Meter("next-auth-practice/security").Float64Histogram(
		"auth.password_verify.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Time spent verifying a password digest."),
	)
	if err != nil {
		otel.Handle(err)
	}
	return &VerifierPool{
		verifier: verifier,
		sem:      semaphore.NewWeighted(int64(workers)),
		duration: hist,
	}
}

// Verify waits for a free worker and verifies password against digest. It returns
// ctx.Err() if ctx ends while waiting or while the comparison runs; an in-flight
// comparison still completes in the background and releases its worker.
func (p *VerifierPool) Verify(ctx context.Context, digest string, password []byte) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		start := time.Now()
		ok, err := p.verifier.Verify(digest, password)
		if p.duration != nil {
			p.duration.Record(context.Background(), float64(time.Since(start).Microseconds())/1000,
				metric.WithAttributes(attribute.Bool("match", ok)))
		}
		done <- result{ok: ok, err: err}
	}()
	select {
	case r := <-done:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
