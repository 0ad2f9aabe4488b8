package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/internal/services"
)

// RateLimit caps requests per client IP over a sliding window.
func RateLimit(limiter *services.RateLimiter, cfg config.RateLimitConfig, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, remaining, err := limiter.Allow(c.Request.Context(), clientIP, cfg.Requests, cfg.Window)
		if err != nil {
			// Continue on error to avoid blocking requests when Redis is down
			logger.WithError(err).Error("Failed to check rate limit")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger.WithFields(logrus.Fields{
				"client_ip": clientIP,
				"limit":     cfg.Requests,
				"window":    cfg.Window,
			}).Warn("Rate limit exceeded")

			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded. Please try again later.",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
