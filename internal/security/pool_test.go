package security

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type blockingVerifier struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func (v *blockingVerifier) Verify(digest string, password []byte) (bool, error) {
	n := v.active.Add(1)
	for {
		p := v.peak.Load()
		if n <= p || v.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-v.release
	v.active.Add(-1)
	return digest == string(password), nil
}

func TestVerifierPool_BoundsConcurrency(t *testing.T) {
	v := &blockingVerifier{release: make(chan struct{})}
	pool := NewVerifierPool(v, 2, sdkmetric.NewMeterProvider())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := pool.Verify(context.Background(), "pw", []byte("pw"))
			if err != nil || !ok {
				t.Errorf("Verify = %v, %v", ok, err)
			}
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for v.active.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(v.release)
	wg.Wait()
	if peak := v.peak.Load(); peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestVerifierPool_ContextCancelledWhileWaiting(t *testing.T) {
	v := &blockingVerifier{release: make(chan struct{})}
	defer close(v.release)
	pool := NewVerifierPool(v, 1, sdkmetric.NewMeterProvider())

	go func() { _, _ = pool.Verify(context.Background(), "a", []byte("a")) }()
	deadline := time.Now().Add(2 * time.Second)
	for v.active.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := pool.Verify(ctx, "b", []byte("b"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}
}

func TestVerifierPool_RecordsDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	h := NewHasher(4)
	digest, _ := h.Hash([]byte("Abcdef1!"))
	pool := NewVerifierPool(NewPasswords(h), 0, mp)

	ok, err := pool.Verify(context.Background(), digest, []byte("Abcdef1!"))
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "auth.password_verify.duration" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("auth.password_verify.duration not recorded")
	}
}
