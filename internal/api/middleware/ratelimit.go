package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dyike/audney/internal/metrics"
)

// RateLimiter applies a token bucket per account. Limiters are dropped
// wholesale once an hour to bound memory.
type RateLimiter struct {
	perMinute   int
	limiters    map[int64]*rate.Limiter
	mu          sync.Mutex
	lastCleanup time.Time
	logger      zerolog.Logger
}

func NewRateLimiter(perMinute int, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		perMinute:   perMinute,
		limiters:    make(map[int64]*rate.Limiter),
		lastCleanup: time.Now(),
		logger:      logger,
	}
}

func (l *RateLimiter) limiter(accountID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) > time.Hour {
		l.limiters = make(map[int64]*rate.Limiter)
		l.lastCleanup = time.Now()
	}
	lim, ok := l.limiters[accountID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.limiters[accountID] = lim
	}
	return lim
}

// Middleware limits requests of authenticated callers. Anonymous requests
// pass through untouched.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil || l.perMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !l.limiter(sess.AccountID).Allow() {
			metrics.RateLimitHits.WithLabelValues(normalizePath(r.URL.Path)).Inc()
			l.logger.Warn().Int64("account_id", sess.AccountID).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int((time.Minute/time.Duration(l.perMinute)).Seconds())+1))
			jsonError(w, http.StatusTooManyRequests, "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
