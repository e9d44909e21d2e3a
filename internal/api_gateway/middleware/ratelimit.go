package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map between cleanups
const maxTrackedClients = 10000

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	logger   *slog.Logger
}

func NewRateLimiter(logger *slog.Logger, requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler rejects requests over the client's budget with 429
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	retryAfter := retryAfterSeconds(rl.rate)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if rl.limiter(key).Allow() {
			c.Next()
			return
		}

		rl.logger.Warn("Rate limit exceeded",
			"client_ip", key,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"correlation_id", GetCorrelationID(c),
		)

		c.Header("Retry-After", retryAfter)
		response := gin.H{
			"error": gin.H{
				"code":    "RATE_LIMITED",
				"message": "Too many requests",
			},
		}
		if correlationID := GetCorrelationID(c); correlationID != "" {
			response["correlation_id"] = correlationID
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, response)
	}
}

// retryAfterSeconds is the time until one token refills, rounded up to whole seconds
func retryAfterSeconds(limit rate.Limit) string {
	if limit <= 0 {
		return "1"
	}
	return strconv.Itoa(max(1, int(math.Ceil(1/float64(limit)))))
}
