package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"filevault/internal/apperr"
	"filevault/internal/config"
	"filevault/internal/response"
)

// RateLimit allows cfg.RequestsPerMinute requests per client IP and route
// within cfg.Window. Counters live in Redis; if Redis is unavailable the
// request is let through.
func RateLimit(client redis.Cmdable, cfg config.RateLimitConfig, log zerolog.Logger) gin.HandlerFunc {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	limit := cfg.RequestsPerMinute

	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", c.FullPath(), c.ClientIP())

		count, err := incrWithExpire(c.Request.Context(), client, key, window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
			c.Next()
			return
		}

		remaining := max(limit-int(count), 0)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > limit {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Abort(c, apperr.RateLimited("Request was throttled."))
			return
		}

		c.Next()
	}
}

// incrWithExpire bumps the window counter and reads its TTL in one round
// trip. A counter without a TTL gets one on whichever request sees it, so a
// lost EXPIRE never pins a client at the limit.
func incrWithExpire(ctx context.Context, client redis.Cmdable, key string, window time.Duration) (int64, error) {
	pipe := client.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	if ttl.Val() < 0 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return incr.Val(), nil
}
