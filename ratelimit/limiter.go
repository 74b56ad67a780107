package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultMaxRequests is used when Options.MaxRequests is zero.
	DefaultMaxRequests = 10
	// DefaultWindow is used when Options.Window is zero.
	DefaultWindow = time.Minute
	// DefaultSweepInterval is how often MemoryLimiter drops expired entries.
	DefaultSweepInterval = 5 * time.Minute
)

// Limiter admits or denies a single request for key under opts.
//
// Implementations must be safe for concurrent use and must count exactly:
// with MaxRequests=N, at most N calls per window succeed for one key.
type Limiter interface {
	Check(ctx context.Context, key string, opts Options) (Result, error)
}

// Options bounds one key. Zero fields take the package defaults.
type Options struct {
	MaxRequests int
	Window      time.Duration
}

// Normalize applies defaults and rejects negative values.
func (o Options) Normalize() (Options, error) {
	if o.MaxRequests < 0 || o.Window < 0 {
		return o, fmt.Errorf("%w: max=%d window=%s", ErrInvalidOptions, o.MaxRequests, o.Window)
	}
	if o.MaxRequests == 0 {
		o.MaxRequests = DefaultMaxRequests
	}
	if o.Window == 0 {
		o.Window = DefaultWindow
	}
	return o, nil
}

// Result is the outcome of one Check.
type Result struct {
	Success   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RetryAfter reports how long a denied caller should wait. Zero when admitted.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Success {
		return 0
	}
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Key joins an operation name and a client address into a limiter key.
func Key(operation, clientIP string) string {
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		clientIP = "unknown"
	}
	return operation + ":" + clientIP
}
