package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-alert-indexer/internal/api/shared/errors"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/ratelimit"
)

// RateLimit returns a gin middleware that rejects clients exceeding their token bucket.
// Clients are keyed by IP address.
func RateLimit(l ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := l.Allow(c.ClientIP())
		if allowed {
			c.Next()
			return
		}

		seconds := max(int(math.Ceil(retryAfter.Seconds())), 1)
		logger.WarnCtx(c.Request.Context(), "Rate limit exceeded",
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("retry_after", retryAfter),
		)
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierrors.NewRateLimitedError(seconds))
	}
}
