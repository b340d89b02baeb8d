package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// hit sends one GET for path from ip through h.
func hit(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":40000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --------------------------------------------------------------------------
// RateLimiter
// --------------------------------------------------------------------------

func TestRateLimiter_BurstThenReject(t *testing.T) {
	h := RateLimiter(1, 5)(okHandler())

	for i := 0; i < 5; i++ {
		rr := hit(h, "/api/v1/quote", "10.0.0.1")
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d within burst: got %d", i+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
			t.Errorf("X-RateLimit-Limit = %q, want 5", got)
		}
	}

	rr := hit(h, "/api/v1/quote", "10.0.0.1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("request past burst: got %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rr.Header().Get("X-RateLimit-Remaining"))
	}
	secs, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || secs < 1 {
		t.Errorf("Retry-After = %q, want a positive number of seconds", rr.Header().Get("Retry-After"))
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding 429 body: %v", err)
	}
	if body["error"] != "rate limit exceeded" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRateLimiter_RemainingCountsDown(t *testing.T) {
	h := RateLimiter(0.001, 3)(okHandler())

	want := []string{"2", "1", "0"}
	for i, w := range want {
		rr := hit(h, "/preview", "10.0.0.2")
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != w {
			t.Errorf("request %d: remaining = %q, want %q", i+1, got, w)
		}
	}
}

func TestRateLimiter_PerIPBuckets(t *testing.T) {
	h := RateLimiter(0.001, 1)(okHandler())

	if rr := hit(h, "/preview", "10.0.0.3"); rr.Code != http.StatusOK {
		t.Fatalf("first ip: got %d", rr.Code)
	}
	if rr := hit(h, "/preview", "10.0.0.3"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("first ip again: got %d, want 429", rr.Code)
	}
	if rr := hit(h, "/preview", "10.0.0.4"); rr.Code != http.StatusOK {
		t.Errorf("second ip shares a bucket: got %d", rr.Code)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	// 50 tokens per second: one token every 20ms.
	h := RateLimiter(50, 1)(okHandler())

	if rr := hit(h, "/export/pdf", "10.0.0.5"); rr.Code != http.StatusOK {
		t.Fatalf("first: got %d", rr.Code)
	}
	if rr := hit(h, "/export/pdf", "10.0.0.5"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("immediate second: got %d, want 429", rr.Code)
	}
	time.Sleep(60 * time.Millisecond)
	if rr := hit(h, "/export/pdf", "10.0.0.5"); rr.Code != http.StatusOK {
		t.Errorf("after refill: got %d, want 200", rr.Code)
	}
}

func TestRateLimiter_ExemptPaths(t *testing.T) {
	h := RateLimiter(0.001, 1)(okHandler())
	hit(h, "/preview", "10.0.0.6") // drain the bucket

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		for i := 0; i < 3; i++ {
			rr := hit(h, path, "10.0.0.6")
			if rr.Code != http.StatusOK {
				t.Errorf("%s request %d: got %d, want 200", path, i+1, rr.Code)
			}
			if rr.Header().Get("X-RateLimit-Limit") != "" {
				t.Errorf("%s carries rate limit headers", path)
			}
		}
	}
}

func TestRateLimiter_KeysOnForwardedClient(t *testing.T) {
	h := RateLimiter(0.001, 1)(okHandler())

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/preview", nil)
		req.RemoteAddr = "127.0.0.1:1234" // the proxy
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("203.0.113.7, 127.0.0.1"); code != http.StatusOK {
		t.Fatalf("first client: got %d", code)
	}
	if code := send("203.0.113.8, 127.0.0.1"); code != http.StatusOK {
		t.Errorf("second client behind the same proxy was limited: got %d", code)
	}
	if code := send("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Errorf("first client again: got %d, want 429", code)
	}
}

// --------------------------------------------------------------------------
// rateLimiterState
// --------------------------------------------------------------------------

func TestRateLimiterState_RetryAfter(t *testing.T) {
	s := newRateLimiterState(0.5, 1)

	if got := s.retryAfter("10.1.0.1"); got != 1 {
		t.Errorf("unknown ip: retryAfter = %d, want 1", got)
	}

	s.allow("10.1.0.2")
	// Bucket is empty; one token at 0.5/s takes about 2s.
	if got := s.retryAfter("10.1.0.2"); got < 1 || got > 2 {
		t.Errorf("drained ip: retryAfter = %d, want 1..2", got)
	}

	fresh := newRateLimiterState(10, 5)
	fresh.allow("10.1.0.3")
	if got := fresh.retryAfter("10.1.0.3"); got != 0 {
		t.Errorf("ip with tokens left: retryAfter = %d, want 0", got)
	}
}

func TestRateLimiterState_Sweep(t *testing.T) {
	s := newRateLimiterState(10, 10)
	s.allow("10.2.0.1")
	s.allow("10.2.0.2")

	// Age one client past the idle TTL.
	val, _ := s.clients.Load("10.2.0.1")
	c := val.(*client)
	c.mu.Lock()
	c.lastSeen = time.Now().Add(-2 * s.idleTTL)
	c.mu.Unlock()

	s.sweep(time.Now())

	if _, ok := s.clients.Load("10.2.0.1"); ok {
		t.Error("idle client survived sweep")
	}
	if _, ok := s.clients.Load("10.2.0.2"); !ok {
		t.Error("active client was swept")
	}
}

func TestRateLimiterState_CleanupStops(t *testing.T) {
	s := newRateLimiterState(1, 1)
	s.startCleanup()
	close(s.done)
	s.sweep(time.Now()) // still usable after the sweeper has stopped
}

// --------------------------------------------------------------------------
// extractIP
// --------------------------------------------------------------------------

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"remote addr only", "192.0.2.1:5555", "", "", "192.0.2.1"},
		{"remote addr without port", "192.0.2.1", "", "", "192.0.2.1"},
		{"ipv6 remote addr", "[2001:db8::1]:443", "", "", "2001:db8::1"},
		{"forwarded for wins", "127.0.0.1:1", "198.51.100.1, 10.0.0.1", "198.51.100.9", "198.51.100.1"},
		{"real ip when no forwarded for", "127.0.0.1:1", "", " 198.51.100.9 ", "198.51.100.9"},
		{"empty first forwarded entry falls through", "127.0.0.1:1", " , 10.0.0.1", "198.51.100.9", "198.51.100.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := extractIP(req); got != tt.want {
				t.Errorf("extractIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
