package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"card-admin/internal/observability"
)

// sweepInterval bounds how often idle buckets are dropped.
const sweepInterval = time.Minute

// RateLimiter throttles login attempts per client IP. A host whose bucket
// has refilled is indistinguishable from a new one, so its entry is dropped
// on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	rate      rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// NewRateLimiter allows burst attempts per host, refilled at
// attemptsPerSecond.
func NewRateLimiter(attemptsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(attemptsPerSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// allow spends one token from host's bucket.
func (rl *RateLimiter) allow(host string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweep(now)
	}

	b, ok := rl.buckets[host]
	if !ok {
		b = rate.NewLimiter(rl.rate, rl.burst)
		rl.buckets[host] = b
	}
	return b.AllowN(now, 1)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for host, b := range rl.buckets {
		if b.TokensAt(now) >= float64(rl.burst) {
			delete(rl.buckets, host)
		}
	}
	rl.lastSweep = now
}

// Middleware rejects a host's attempts once its bucket is empty.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := clientIP(r)
			if !rl.allow(host) {
				observability.FromContext(r.Context()).Warn("login attempts throttled",
					"client_ip", host)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port so every connection from one host shares a
// bucket. RemoteAddr has already been rewritten by chi's RealIP when the
// server sits behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
