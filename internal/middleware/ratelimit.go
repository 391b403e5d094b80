package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests beyond the limiter's budget with 429
func RateLimit(limiter *rate.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"code":    domain.CodeRateLimited,
					"message": domain.ErrRateLimited.Error(),
				},
			})
		}
		return c.Next()
	}
}
