package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errBrokerDown = errors.New("broker unreachable")

func fastRetryConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func brokerClassifier(err error) ErrorClassification {
	return ErrorClassification{
		Retryable:     errors.Is(err, errBrokerDown),
		RecordFailure: err != nil,
	}
}

func TestExecuteRetriesUntilPublishSucceeds(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	attempts := 0
	err := exec.Execute(context.Background(), "queue.publish", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errBrokerDown
		}
		return nil
	}, brokerClassifier)
	if err != nil {
		t.Fatalf("publish should succeed once the broker recovers: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteGivesUpOnTerminalError(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	errBadSubject := errors.New("invalid subject")
	attempts := 0
	err := exec.Execute(context.Background(), "queue.publish", func(context.Context) error {
		attempts++
		return errBadSubject
	}, brokerClassifier)
	if !errors.Is(err, errBadSubject) {
		t.Fatalf("error = %v, want the terminal error unchanged", err)
	}
	if attempts != 1 {
		t.Fatalf("terminal error must not be retried, attempts = %d", attempts)
	}
}

func TestExecuteStopsRetryingOnCanceledContext(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := exec.Execute(ctx, "queue.publish", func(context.Context) error {
		attempts++
		cancel()
		return errBrokerDown
	}, brokerClassifier)
	if !errors.Is(err, errBrokerDown) {
		t.Fatalf("error = %v, want the last attempt's error", err)
	}
	if attempts != 1 {
		t.Fatalf("canceled context must stop the retry loop, attempts = %d", attempts)
	}
}

func TestExecuteOpensBreakerAndShortCircuits(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "queue.publish", func(context.Context) error {
			return errBrokerDown
		}, brokerClassifier)
		if !errors.Is(err, errBrokerDown) {
			t.Fatalf("call %d: error = %v, want broker error", i, err)
		}
	}

	err := exec.Execute(context.Background(), "queue.publish", func(context.Context) error {
		t.Fatal("open breaker must not reach the broker")
		return nil
	}, brokerClassifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("error = %v, want open-state error", err)
	}
	if !IsCircuitOpen(err) {
		t.Errorf("IsCircuitOpen(%v) = false, want true", err)
	}
}

func TestExecuteKeepsBreakersPerOperation(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	for i := 0; i < 2; i++ {
		_ = exec.Execute(context.Background(), "queue.publish", func(context.Context) error {
			return errBrokerDown
		}, brokerClassifier)
	}

	// Tripping queue.publish must leave other operations closed.
	err := exec.Execute(context.Background(), "graph.project", func(context.Context) error {
		return nil
	}, brokerClassifier)
	if err != nil {
		t.Fatalf("unrelated operation must stay available: %v", err)
	}
}

func TestConfigNormalizeFillsDefaults(t *testing.T) {
	got := Config{BreakerEnabled: true}.normalize()
	def := DefaultConfig()

	if got.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Errorf("RetryMaxAttempts = %d, want %d", got.RetryMaxAttempts, def.RetryMaxAttempts)
	}
	if got.RetryInitialBackoff != def.RetryInitialBackoff {
		t.Errorf("RetryInitialBackoff = %v, want %v", got.RetryInitialBackoff, def.RetryInitialBackoff)
	}
	if got.BreakerMinRequests != def.BreakerMinRequests {
		t.Errorf("BreakerMinRequests = %d, want %d", got.BreakerMinRequests, def.BreakerMinRequests)
	}

	// A max backoff below the initial backoff is lifted to match it.
	clamped := Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 10 * time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	}.normalize()
	if clamped.RetryMaxBackoff != 10*time.Millisecond {
		t.Errorf("RetryMaxBackoff = %v, want clamped to initial backoff", clamped.RetryMaxBackoff)
	}
}
