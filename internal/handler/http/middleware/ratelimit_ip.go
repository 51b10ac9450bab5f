package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"drafty-relay/internal/handler/http/respond"
)

var (
	rateLimitDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions by result",
		},
		[]string{"decision"},
	)

	rateLimitTrackedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ratelimit_tracked_clients",
			Help: "Number of client IPs currently holding a token bucket",
		},
	)
)

// IPRateLimiterConfig configures the per-IP token bucket.
type IPRateLimiterConfig struct {
	// RPS is the sustained request rate per client IP.
	RPS float64

	// Burst is the bucket size.
	Burst int

	// IdleTTL is how long an unused bucket is kept before Cleanup drops it.
	IdleTTL time.Duration

	Enabled bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter limits requests per client IP with one token bucket each.
type IPRateLimiter struct {
	config      IPRateLimiterConfig
	ipExtractor IPExtractor
	now         func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewIPRateLimiter creates a limiter. A nil extractor uses RemoteAddrExtractor.
func NewIPRateLimiter(config IPRateLimiterConfig, ipExtractor IPExtractor) *IPRateLimiter {
	if ipExtractor == nil {
		ipExtractor = RemoteAddrExtractor{}
	}
	return &IPRateLimiter{
		config:      config,
		ipExtractor: ipExtractor,
		now:         time.Now,
		visitors:    make(map[string]*visitor),
	}
}

// Middleware returns the HTTP middleware. Requests whose IP cannot be
// determined are allowed and logged.
func (rl *IPRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.config.Enabled || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ip, err := rl.ipExtractor.ExtractIP(r)
			if err != nil {
				slog.Error("IP rate limiter: failed to extract IP, allowing request",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.limiterFor(ip)
			reservation := limiter.ReserveN(rl.now(), 1)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))

			if delay := reservation.DelayFrom(rl.now()); delay > 0 {
				reservation.CancelAt(rl.now())
				retryAfter := int(math.Ceil(delay.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Remaining", "0")
				rateLimitDecisionsTotal.WithLabelValues("denied").Inc()

				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
					slog.Int("retry_after", retryAfter))
				respond.SafeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
				return
			}

			remaining := int(limiter.TokensAt(rl.now()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
			rateLimitDecisionsTotal.WithLabelValues("allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.config.RPS), rl.config.Burst)}
		rl.visitors[ip] = v
		rateLimitTrackedClients.Set(float64(len(rl.visitors)))
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Cleanup drops buckets idle for longer than IdleTTL and returns how many
// were removed.
func (rl *IPRateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.config.IdleTTL)
	removed := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	rateLimitTrackedClients.Set(float64(len(rl.visitors)))
	return removed
}

// Len returns the number of tracked client IPs.
func (rl *IPRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// ScheduleCleanup registers Cleanup on a cron scheduler. The caller starts
// and stops the returned scheduler.
func (rl *IPRateLimiter) ScheduleCleanup(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if removed := rl.Cleanup(); removed > 0 {
			slog.Debug("rate limit cleanup completed",
				slog.Int("removed", removed),
				slog.Int("tracked", rl.Len()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return c, nil
}
