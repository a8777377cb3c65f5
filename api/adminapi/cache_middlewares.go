package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certkeeper/certkeeper/verification"
)

// detailsCacheInvalidationMiddleware clears cached certificate details for
// requests that successfully modify certificates.
// It should be attached only to non-GET routes.
func detailsCacheInvalidationMiddleware(verifier *verification.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() == fiber.MethodGet {
			return nil
		}
		status := c.Response().StatusCode()
		if status >= 200 && status < 400 {
			verifier.InvalidateAllDetails()
		}
		return nil
	}
}
