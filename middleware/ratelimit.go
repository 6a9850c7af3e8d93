// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/metrics"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyFunc picks the bucket a request is counted against. identity is nil
// on anonymous routes.
type KeyFunc func(r *http.Request, identity *auth.Identity) string

// ByClientIP buckets requests on the client address.
func ByClientIP(trusted TrustedProxies) KeyFunc {
	return func(r *http.Request, _ *auth.Identity) string {
		return GetClientIP(r, trusted)
	}
}

// ByClientAndIdentity buckets requests on the client address plus the
// identity when there is one.
func ByClientAndIdentity(trusted TrustedProxies) KeyFunc {
	return func(r *http.Request, identity *auth.Identity) string {
		key := GetClientIP(r, trusted)
		if identity != nil {
			key += "|" + identity.ID
		}
		return key
	}
}

// ByIdentity buckets requests on the identity alone, falling back to the
// client address for anonymous requests.
func ByIdentity(trusted TrustedProxies) KeyFunc {
	return func(r *http.Request, identity *auth.Identity) string {
		if identity != nil {
			return "id:" + identity.ID
		}
		return "ip:" + GetClientIP(r, trusted)
	}
}

// RateLimiter allows max requests per window for each key. Idle keys are
// dropped after one window.
type RateLimiter struct {
	name    string
	max     int
	window  time.Duration
	key     KeyFunc
	metrics *metrics.MetricService
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

// NewRateLimiter builds a limiter. name labels the rejection metric.
func NewRateLimiter(name string, max int, window time.Duration, key KeyFunc, m *metrics.MetricService) *RateLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if key == nil {
		key = ByClientIP(nil)
	}
	return &RateLimiter{
		name:    name,
		max:     max,
		window:  window,
		key:     key,
		metrics: m,
		now:     time.Now,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow reports whether a request for key may proceed.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.window {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok {
		// Full burst up front, refilled evenly across the window
		every := l.window / time.Duration(l.max)
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(every), l.max)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// retryAfter is the wait, in whole seconds, for one token to refill.
func (l *RateLimiter) retryAfter() string {
	secs := math.Ceil((l.window / time.Duration(l.max)).Seconds())
	return strconv.Itoa(int(math.Max(secs, 1)))
}

func (l *RateLimiter) reject(w http.ResponseWriter) {
	l.metrics.IncRateLimited(l.name)
	w.Header().Set("Retry-After", l.retryAfter())
	ErrorResponse(w, http.StatusTooManyRequests, CodeRateLimitExceeded, "Too many requests, please try again later")
}

// Limit wraps an authenticated handler.
func (l *RateLimiter) Limit(next IdentityHandlerFunc) IdentityHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		if !l.Allow(l.key(r, identity)) {
			l.reject(w)
			return
		}
		next(w, r, identity)
	}
}

// Handler wraps a whole handler tree; requests are keyed without an
// identity.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.key(r, nil)) {
			l.reject(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
