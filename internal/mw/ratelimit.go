package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// IPRateLimiter stores a rate limiter for each IP address. Limiters for
// clients that stay quiet longer than the idle window are dropped.
type IPRateLimiter struct {
	ips  *cache.Cache
	r    rate.Limit
	b    int
	idle time.Duration
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &IPRateLimiter{
		ips:  cache.New(idle, idle*2),
		r:    r,
		b:    b,
		idle: idle,
	}
}

// GetLimiter returns the rate limiter for an IP address, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if v, ok := i.ips.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		i.ips.SetDefault(ip, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(i.r, i.b)
	// Add fails when another request won the race; use its limiter.
	if err := i.ips.Add(ip, limiter, i.idle); err != nil {
		if v, ok := i.ips.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Len returns the number of tracked clients.
func (i *IPRateLimiter) Len() int {
	return i.ips.ItemCount()
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
