package middleware

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"golang.org/x/time/rate"
)

// ThrottleConfig sizes the per-IP token buckets used by [Throttle].
type ThrottleConfig struct {
	RPS   float64
	Burst int
	// IdleTTL is how long an unused bucket is kept. Default 10m.
	IdleTTL time.Duration
	// SweepInterval is how often idle buckets are dropped. Default 1m.
	SweepInterval time.Duration
}

type throttleClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type throttler struct {
	cfg     ThrottleConfig
	mu      sync.Mutex
	clients map[string]*throttleClient
	now     func() time.Time
}

// Throttle is a smoothing token bucket per client IP, independent of the
// engine's named fixed-window budgets. The sweeper stops when ctx ends.
func Throttle(ctx context.Context, cfg ThrottleConfig) func(http.Handler) http.Handler {
	t := newThrottler(cfg)
	go t.sweepLoop(ctx)
	return t.middleware
}

func newThrottler(cfg ThrottleConfig) *throttler {
	if cfg.RPS <= 0 {
		cfg.RPS = 20
	}
	if cfg.Burst <= 0 {
		// at least one token so sub-1 rates still admit a first request
		cfg.Burst = max(1, int(math.Ceil(cfg.RPS*2)))
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &throttler{
		cfg:     cfg,
		clients: make(map[string]*throttleClient),
		now:     time.Now,
	}
}

func (t *throttler) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.allow(officeauth.NewRequestContext(r).ClientIP()) {
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *throttler) allow(ip string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.clients[ip]
	if !ok {
		c = &throttleClient{limiter: rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst)}
		t.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (t *throttler) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for ip, c := range t.clients {
		if now.Sub(c.lastSeen) > t.cfg.IdleTTL {
			delete(t.clients, ip)
			removed++
		}
	}
	return removed
}

func (t *throttler) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep(t.now())
		case <-ctx.Done():
			return
		}
	}
}
