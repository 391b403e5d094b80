package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	fieldFingerprint = "fingerprint"
	fieldBody        = "body"
)

// IdempotencyMiddleware replays the cached 2xx response of a POST/PATCH/PUT that carries a key
// already seen within ttl. The key comes from Idempotency-Key, falling back to X-Correlation-ID.
// A key presented again with a different request body is rejected with 422 IdempotencyKeyReused.
// This only short-circuits transport retries; durable deduplication happens in the settlement
// service.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Only apply to mutating methods
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		requestKey := c.Get("Idempotency-Key")
		if requestKey == "" {
			requestKey = c.Get("X-Correlation-ID")
		}
		if requestKey == "" {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s", c.Path(), requestKey)
		fingerprint := strconv.FormatUint(xxhash.Sum64(c.Body()), 16)

		cached, err := redisClient.HGetAll(c.UserContext(), key).Result()
		if err == nil && len(cached[fieldBody]) > 0 {
			if cached[fieldFingerprint] != fingerprint {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"success": false,
					"error": fiber.Map{
						"code":    domain.CodeIdempotencyKeyReused,
						"message": domain.ErrIdempotencyKeyReused.Error(),
					},
				})
			}
			c.Set("X-Idempotent-Replay", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(fiber.StatusOK).SendString(cached[fieldBody])
		}

		if err := c.Next(); err != nil {
			return err
		}

		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			return nil
		}
		// fasthttp reuses the body buffer once the handler returns
		body := string(c.Response().Body())
		if body == "" {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldFingerprint, fingerprint, fieldBody, body)
			pipe.Expire(ctx, key, ttl)
			return nil
		})

		return nil
	}
}
