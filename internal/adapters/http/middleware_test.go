package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitSheds(t *testing.T) {
	handler := rateLimitMiddleware(okHandler(), 1, 1)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}

	// The bucket is drained: the immediate second request is shed.
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("429 must carry Retry-After")
	}
}

func TestRateLimitDisabledWhenZero(t *testing.T) {
	handler := rateLimitMiddleware(okHandler(), 0, 0)

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestBackpressureShedsWhenSaturated(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entered <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	})
	handler := backpressureMiddleware(slow, 1, 50*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/records", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("occupant status = %d", rec.Code)
		}
	}()
	<-entered

	// The single slot is taken; the next request times out queuing.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/records", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("queued request status = %d, want 503", rec.Code)
	}

	close(release)
	wg.Wait()
}

func TestBackpressureReleasesSlot(t *testing.T) {
	handler := backpressureMiddleware(okHandler(), 1, 50*time.Millisecond)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/records", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, slot leaked", i, rec.Code)
		}
	}
}
