package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/ratelimit"
)

// RateChecker is the part of [officeauth.Engine] used by [RateLimit].
type RateChecker interface {
	CheckRateLimit(ctx context.Context, operation, clientIP string) (ratelimit.Result, error)
}

// RateLimit charges every request against the budget of operation for the
// client IP. Denied requests get 429; a limiter error surfaced by the engine
// (fail-closed mode) gets 503.
func RateLimit(checker RateChecker, operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := officeauth.NewRequestContext(r).ClientIP()
			res, err := checker.CheckRateLimit(r.Context(), operation, ip)
			if err != nil {
				WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}

			setRateLimitHeaders(w.Header(), res)
			if !res.Success {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter(time.Now()))))
				WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(h http.Header, res ratelimit.Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	}
}

// retryAfterSeconds rounds up so clients never retry inside the window.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
