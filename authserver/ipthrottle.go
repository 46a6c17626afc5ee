package authserver

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const visitorIdleTTL = 5 * time.Minute

// IPThrottle is an in-process token bucket per client IP. It sits in front
// of the Redis fixed windows and absorbs bursts before they reach Redis.
type IPThrottle struct {
	visitors   sync.Map
	limit      rate.Limit
	burst      int
	trustProxy bool
	log        *zap.Logger
	now        func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// NewIPThrottle allows perMinute requests per IP with the given burst.
func NewIPThrottle(perMinute, burst int, trustProxy bool, logger *zap.Logger) *IPThrottle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if burst < 1 {
		burst = 1
	}
	return &IPThrottle{
		limit:      rate.Limit(float64(perMinute) / 60.0),
		burst:      burst,
		trustProxy: trustProxy,
		log:        logger,
		now:        time.Now,
	}
}

func (l *IPThrottle) getLimiter(ip string) *rate.Limiter {
	now := l.now().UnixNano()
	if v, ok := l.visitors.Load(ip); ok {
		vi := v.(*visitor)
		vi.lastSeen.Store(now)
		return vi.limiter
	}
	vi := &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
	vi.lastSeen.Store(now)
	actual, _ := l.visitors.LoadOrStore(ip, vi)
	return actual.(*visitor).limiter
}

// Allow reports whether one more request from ip is allowed now.
func (l *IPThrottle) Allow(ip string) bool {
	return l.getLimiter(ip).AllowN(l.now(), 1)
}

// Prune drops visitors idle for longer than five minutes and returns how
// many were removed.
func (l *IPThrottle) Prune() int {
	cutoff := l.now().Add(-visitorIdleTTL).UnixNano()
	removed := 0
	l.visitors.Range(func(k, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			l.visitors.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Run prunes idle visitors every minute until ctx is done.
func (l *IPThrottle) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

// Middleware answers 429 with a rateLimited error body once the IP's
// bucket is empty.
func (l *IPThrottle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, l.trustProxy)
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			l.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			writeJSON(w, http.StatusTooManyRequests, goAuthFlow.ServiceError(goAuthFlow.CodeRateLimited, "", ""))
			return
		}
		next.ServeHTTP(w, r)
	})
}
