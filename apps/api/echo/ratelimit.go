package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 15 * time.Minute

// ipRateLimiter keeps one token bucket per client IP; idle buckets expire.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

func newIPRateLimiter(every time.Duration, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: cache.New(limiterIdleTTL, 2*limiterIdleTTL),
		limit:    rate.Every(every),
		burst:    burst,
	}
}

func (l *ipRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.limiters.Get(ip); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	l.limiters.SetDefault(ip, lim) // refresh idle expiration
	return lim.Allow()
}

func (l *ipRateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !l.Allow(ctx.RealIP()) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

type rateLimiters struct {
	login         *ipRateLimiter
	registration  *ipRateLimiter
	passwordReset *ipRateLimiter
}

func newRateLimiters() rateLimiters {
	return rateLimiters{
		login:         newIPRateLimiter(6*time.Second, 10),
		registration:  newIPRateLimiter(20*time.Second, 5),
		passwordReset: newIPRateLimiter(time.Minute, 3),
	}
}
