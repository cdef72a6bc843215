package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() (interface{}, error)    { return nil, errBoom }
func succeeding() (interface{}, error) { return "ok", nil }

func TestCircuitBreakerPassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker()

	result, err := cb.Execute(context.Background(), succeeding)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %v, want ok", result)
	}
	if cb.State() != "closed" {
		t.Errorf("state = %s, want closed", cb.State())
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{MaxFailures: 3})

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), failing)
		if !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected underlying error, got %v", i+1, err)
		}
	}
	if cb.State() != "open" {
		t.Fatalf("state after 3 failures = %s, want open", cb.State())
	}

	// With the circuit open, fn must not run.
	called := false
	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn should not run while the circuit is open")
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{MaxFailures: 3})

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(context.Background(), failing)
	}
	if _, err := cb.Execute(context.Background(), succeeding); err != nil {
		t.Fatalf("success call failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(context.Background(), failing)
	}
	if cb.State() != "closed" {
		t.Errorf("state = %s, want closed (failure streak was broken)", cb.State())
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		MaxFailures:          2,
		Timeout:              50 * time.Millisecond,
		HalfOpenMaxSuccesses: 1,
	})

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(context.Background(), failing)
	}
	if cb.State() != "open" {
		t.Fatalf("state = %s, want open", cb.State())
	}

	time.Sleep(80 * time.Millisecond)

	// First success in half-open state closes the circuit.
	if _, err := cb.Execute(context.Background(), succeeding); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if cb.State() != "closed" {
		t.Errorf("state after recovery = %s, want closed", cb.State())
	}
}

func TestCircuitBreakerHonoursContext(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, succeeding)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	cb := NewCircuitBreaker()

	_, _ = cb.Execute(context.Background(), succeeding)
	_, _ = cb.Execute(context.Background(), succeeding)
	_, _ = cb.Execute(context.Background(), failing)

	m := cb.Metrics()
	if m.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", m.TotalRequests)
	}
	if m.TotalSuccesses != 2 {
		t.Errorf("TotalSuccesses = %d, want 2", m.TotalSuccesses)
	}
	if m.TotalFailures != 1 {
		t.Errorf("TotalFailures = %d, want 1", m.TotalFailures)
	}
	if m.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", m.ConsecutiveFailures)
	}
}
