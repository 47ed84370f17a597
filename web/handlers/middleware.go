// Package handlers provides HTTP handlers and middleware for the
// DriftWatch REST API.
package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stridehq/driftwatch/internal/config"
)

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":"unauthorized","code":"UNAUTHORIZED"}`,
		http.StatusUnauthorized)
}

// RequireAuth enforces bearer-token authentication in production mode.
// Development mode passes every request through so local predictors
// and dashboards need no token plumbing.
func RequireAuth(next http.Handler, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Security.SecurityMode == "development" {
			next.ServeHTTP(w, r)
			return
		}

		expected := cfg.Security.APIToken
		if expected == "" {
			// Production without a configured token locks the API down
			// rather than leaving it open.
			writeUnauthorized(w)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Owner buckets idle longer than ownerIdleTTL are dropped during the
// periodic sweep so one-off owners do not accumulate forever.
const (
	ownerIdleTTL  = 10 * time.Minute
	sweepInterval = time.Minute
)

type ownerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per owner for owner-scoped
// endpoints, so one chatty client cannot starve predictions for every
// other user, plus a shared bucket for requests with no owner in the
// path (ingest, batch, stats).
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	shared    *rate.Limiter
	owners    map[string]*ownerBucket
	lastSweep time.Time
}

// NewRateLimiter creates a rate limiter. reqPerSec is the sustained
// per-bucket rate, burst the maximum burst size.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:       rate.Limit(reqPerSec),
		burst:     burst,
		shared:    rate.NewLimiter(rate.Limit(reqPerSec), burst),
		owners:    make(map[string]*ownerBucket),
		lastSweep: time.Now(),
	}
}

// Allow reports whether a request attributed to the given owner may
// proceed. An empty owner draws from the shared bucket.
func (rl *RateLimiter) Allow(owner string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > sweepInterval {
		for id, b := range rl.owners {
			if now.Sub(b.lastSeen) > ownerIdleTTL {
				delete(rl.owners, id)
			}
		}
		rl.lastSweep = now
	}

	if owner == "" {
		return rl.shared.Allow()
	}
	b, ok := rl.owners[owner]
	if !ok {
		b = &ownerBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.owners[owner] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// ownerFromPath extracts the owner segment from owner-scoped API
// paths such as /api/predict/{owner}. The limiter runs outside the
// router, before path values are bound, so it parses the path itself.
func ownerFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "api" {
		return ""
	}
	switch parts[1] {
	case "predict", "monitor", "trends":
		return parts[2]
	case "vectors":
		if parts[2] != "stats" {
			return parts[2]
		}
	}
	return ""
}

// RateLimitMiddleware enforces per-owner rate limiting on HTTP
// requests.
func RateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ownerFromPath(r.URL.Path)) {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"rate limit exceeded","code":"RATE_LIMITED"}`,
				http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
