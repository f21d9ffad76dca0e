// internal/middleware/rate_limit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/marketloop/marketloop-backend/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter tracks one token bucket per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

func newRateLimiter(r rate.Limit, burst int) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup drops visitors that have been idle for a few minutes.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			utils.ErrorResponse(c, 429, "RATE_LIMITED", "Too many requests, please slow down", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware is the general per-IP limit applied to all routes.
func RateLimitMiddleware() gin.HandlerFunc {
	return newRateLimiter(rate.Limit(10), 20).middleware()
}

// AuthRateLimitMiddleware is the tighter limit for login and registration.
func AuthRateLimitMiddleware() gin.HandlerFunc {
	return newRateLimiter(rate.Limit(2), 10).middleware()
}

// UploadRateLimitMiddleware throttles picture uploads.
func UploadRateLimitMiddleware() gin.HandlerFunc {
	return newRateLimiter(rate.Limit(0.5), 3).middleware()
}
