package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lugf027/mywebsite/utils"
)

const limiterIdleTTL = 5 * time.Minute

type clientLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// ipLimiters holds one token bucket per client IP; idle buckets are dropped after limiterIdleTTL.
type ipLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*clientLimiter
}

// RateLimit applies an IP based token bucket allowing perMinute requests per minute.
func RateLimit(perMinute int) gin.HandlerFunc {
	perMinute = max(perMinute, 1)
	l := &ipLimiters{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
		limiters: map[string]*clientLimiter{},
	}

	return func(ctx *gin.Context) {
		if !l.allow(ctx.ClientIP(), time.Now()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (l *ipLimiters) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, cl := range l.limiters {
		if now.After(cl.expires) {
			delete(l.limiters, k)
		}
	}

	cl, ok := l.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = cl
	}
	cl.expires = now.Add(limiterIdleTTL)
	return cl.limiter.AllowN(now, 1)
}
