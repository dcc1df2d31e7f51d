package httpx

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitOptions struct {
	RPS   float64
	Burst int
	// Idle is how long an unused client bucket is kept. Defaults to 5m.
	Idle time.Duration
	// Exempt paths bypass the limiter, e.g. health checks.
	Exempt []string
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	idle   time.Duration
	exempt map[string]bool
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket
}

// NewRateLimiter starts a janitor that evicts idle buckets until ctx ends.
func NewRateLimiter(ctx context.Context, opts RateLimitOptions) *RateLimiter {
	rl := newRateLimiter(opts)
	go rl.janitor(ctx)
	return rl
}

func newRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Idle <= 0 {
		opts.Idle = 5 * time.Minute
	}
	rl := &RateLimiter{
		limit:   rate.Limit(opts.RPS),
		burst:   opts.Burst,
		idle:    opts.Idle,
		exempt:  make(map[string]bool, len(opts.Exempt)),
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
	for _, p := range opts.Exempt {
		rl.exempt[p] = true
	}
	return rl
}

func (rl *RateLimiter) janitor(ctx context.Context) {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	n := 0
	for key, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			n++
		}
	}
	return n
}

// reserve takes a token for key, or reports how long until one is available.
func (rl *RateLimiter) reserve(key string) (bool, time.Duration) {
	rl.mu.Lock()
	now := rl.now()
	b, ok := rl.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		ok, wait := rl.reserve(ClientIP(r))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			JSONError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
