package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewLimiterAllowsFirstRequest(t *testing.T) {
	limiter := NewLimiter(10, 5)

	if !limiter.allow("192.168.1.1") {
		t.Error("expected first request from new client to be allowed")
	}
}

func TestRequestsWithinBurstAreAllowed(t *testing.T) {
	burst := 5
	limiter := NewLimiter(1, burst)

	for i := 0; i < burst; i++ {
		if !limiter.allow("192.168.1.1") {
			t.Errorf("request %d within burst of %d should be allowed", i+1, burst)
		}
	}
}

func TestRequestsExceedingBurstAreDenied(t *testing.T) {
	burst := 3
	limiter := NewLimiter(1, burst)

	for i := 0; i < burst; i++ {
		limiter.allow("192.168.1.1")
	}

	if limiter.allow("192.168.1.1") {
		t.Error("request exceeding burst should be denied")
	}
}

func TestTokensReplenishOverTime(t *testing.T) {
	limiter := NewLimiter(10, 2)

	limiter.allow("192.168.1.1")
	limiter.allow("192.168.1.1")

	if limiter.allow("192.168.1.1") {
		t.Error("expected request to be denied after exhausting burst")
	}

	// 10 tokens/sec, 150ms is roughly 1.5 tokens.
	time.Sleep(150 * time.Millisecond)

	if !limiter.allow("192.168.1.1") {
		t.Error("expected request to be allowed after token replenishment")
	}
}

func TestDifferentClientsHaveIndependentLimits(t *testing.T) {
	limiter := NewLimiter(1, 2)

	limiter.allow("10.0.0.1")
	limiter.allow("10.0.0.1")
	if limiter.allow("10.0.0.1") {
		t.Error("expected third request from first client to be denied")
	}

	if !limiter.allow("10.0.0.2") {
		t.Error("expected first request from second client to be allowed")
	}
}

func TestPruneRemovesIdleVisitors(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.allow("10.0.0.1")

	limiter.prune(time.Now().Add(visitorTTL + time.Second))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.visitors) != 0 {
		t.Errorf("expected idle visitors to be pruned, %d left", len(limiter.visitors))
	}
}

func TestMiddlewareReturns200WhenAllowed(t *testing.T) {
	limiter := NewLimiter(10, 5)

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.168.1.1:12345"
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", recorder.Code)
	}
}

func TestMiddlewareReturns429WhenLimited(t *testing.T) {
	limiter := NewLimiter(1, 1)

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		request := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		// Same host on a different source port must share a bucket.
		request.RemoteAddr = "192.168.1.1:" + []string{"1000", "2000"}[i]
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		if recorder.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i+1, want, recorder.Code)
		}
		if want == http.StatusTooManyRequests && recorder.Header().Get("Retry-After") != "10" {
			t.Errorf("expected Retry-After header, got %q", recorder.Header().Get("Retry-After"))
		}
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr with port", "203.0.113.7:5555", "", "203.0.113.7"},
		{"remote addr without port", "203.0.113.7", "", "203.0.113.7"},
		{"forwarded single", "10.0.0.1:80", "198.51.100.2", "198.51.100.2"},
		{"forwarded chain", "10.0.0.1:80", "198.51.100.2, 10.0.0.9", "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientKey(r); got != tt.want {
				t.Errorf("clientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
