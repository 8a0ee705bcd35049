package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByUser keys requests by the authenticated user. Place it after AuthMiddleware.
func ByUser(r *http.Request) string {
	return GetUserID(r.Context())
}

// ByClientIP keys requests by remote address. chi's RealIP middleware should run first.
func ByClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter limits requests per key with a token bucket
type RateLimiter struct {
	name    string
	limit   rate.Limit
	burst   int
	keyFunc KeyFunc
	idleTTL time.Duration

	mu       sync.Mutex
	limiters map[string]*keyLimiter

	stopCh chan struct{}
}

// NewRateLimiter allows perMinute requests per key with the given burst.
// Idle keys are dropped in the background; call Stop to end that loop.
func NewRateLimiter(name string, perMinute, burst int, keyFunc KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		name:     name,
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		keyFunc:  keyFunc,
		idleTTL:  10 * time.Minute,
		limiters: make(map[string]*keyLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop(rl.idleTTL / 2)

	return rl
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.get(key).Allow() {
			log.Warn().Str("limiter", rl.name).Str("key", key).Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			respondError(w, "Too many requests, try again later", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Len is the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	kl, ok := rl.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	return kl.limiter
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit <= 0 {
		return 60
	}
	secs := int(math.Ceil(1.0 / float64(rl.limit)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, kl := range rl.limiters {
		if now.Sub(kl.lastAccess) > rl.idleTTL {
			delete(rl.limiters, key)
		}
	}
}
