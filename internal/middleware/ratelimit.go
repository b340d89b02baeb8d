package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// client is the limiter for a single IP address.
type client struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// rateLimiterState holds the shared state for a rate limiter instance.
type rateLimiterState struct {
	clients sync.Map // map[string]*client (IP -> limiter)
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	done    chan struct{}
}

func newRateLimiterState(perSecond float64, burst int) *rateLimiterState {
	return &rateLimiterState{
		rate:    rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		done:    make(chan struct{}),
	}
}

// healthCheckPaths are endpoints exempt from rate limiting.
var healthCheckPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// allow consumes one token for ip. Returns (allowed, remaining, limit).
func (s *rateLimiterState) allow(ip string) (bool, int, int) {
	now := time.Now()
	val, _ := s.clients.LoadOrStore(ip, &client{
		limiter:  rate.NewLimiter(s.rate, s.burst),
		lastSeen: now,
	})
	c := val.(*client)

	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()

	if !c.limiter.AllowN(now, 1) {
		return false, 0, s.burst
	}
	remaining := int(math.Floor(c.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, s.burst
}

// retryAfter estimates how many seconds until one token is available.
func (s *rateLimiterState) retryAfter(ip string) int {
	val, ok := s.clients.Load(ip)
	if !ok {
		return 1
	}
	tokens := val.(*client).limiter.TokensAt(time.Now())
	if tokens >= 1.0 {
		return 0
	}
	if s.rate <= 0 {
		return 1
	}
	return int(math.Ceil((1.0 - tokens) / float64(s.rate)))
}

// sweep removes clients idle for longer than idleTTL.
func (s *rateLimiterState) sweep(now time.Time) {
	cutoff := now.Add(-s.idleTTL)
	s.clients.Range(func(key, value any) bool {
		c := value.(*client)
		c.mu.Lock()
		stale := c.lastSeen.Before(cutoff)
		c.mu.Unlock()
		if stale {
			s.clients.Delete(key)
		}
		return true
	})
}

// startCleanup sweeps idle clients every 5 minutes until done is closed.
func (s *rateLimiterState) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				s.sweep(now)
			case <-s.done:
				return
			}
		}
	}()
}

// RateLimiter creates middleware that limits requests per IP address using a
// token bucket with the given sustained rate (requests per second) and burst.
//
//	limited := middleware.RateLimiter(20, 40)
//	handler := limited(mux)
func RateLimiter(perSecond float64, burst int) func(http.Handler) http.Handler {
	state := newRateLimiterState(perSecond, burst)
	state.startCleanup()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if healthCheckPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ip := extractIP(r)

			allowed, remaining, limit := state.allow(ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(state.retryAfter(ip)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "rate limit exceeded",
					"message": "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP retrieves the client IP from the request, preferring
// X-Forwarded-For and X-Real-IP headers (for reverse proxy setups),
// and falling back to RemoteAddr.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first (leftmost) IP, which is the original client.
		parts := strings.SplitN(xff, ",", 2)
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
