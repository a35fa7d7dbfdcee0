package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	idmw "github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/middleware"
)

// limiters holds one token bucket per key.
var limiters sync.Map // map[string]*rate.Limiter

func getLimiter(key string, rps float64, burst int) *rate.Limiter {
	if v, ok := limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	limiters.Store(key, lim)
	return lim
}

// RateLimit enforces a per-key token-bucket limit. Authenticated requests
// are keyed by principal id, anonymous ones by client IP.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ""
		if p := idmw.CurrentPrincipal(c); p != nil {
			key = "principal:" + p.ID
		}
		if key == "" {
			ip := c.ClientIP()
			if ip == "" {
				ip = "unknown"
			}
			key = "ip:" + ip
		}

		if !getLimiter(key, rps, burst).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
