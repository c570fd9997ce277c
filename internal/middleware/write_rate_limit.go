package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const writeRateLimitPrefix = "rl:write:"

// WriteRateLimit caps ledger writes per userId form value, falling back to the
// client IP, using a fixed one minute window in Redis. It is a no-op without a
// cache or with a non-positive limit, and fails open on cache errors.
func WriteRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if cache == nil || maxPerMin <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		subject := strings.TrimSpace(c.FormValue("userId"))
		if subject == "" {
			subject = c.IP()
		}
		key := writeRateLimitPrefix + subject

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("write rate limit lookup failed", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many write requests, try again later")
		}
		return c.Next()
	}
}
