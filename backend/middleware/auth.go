package middleware

import (
	"cactus/backend/config"
	"cactus/backend/utils"
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware trusts the identity provider's token and stores the caller
// in the request locals.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := utils.ExtractIdentityFromToken(c, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		utils.SetIdentity(c, identity)
		return c.Next()
	}
}

// SweepSecretMiddleware guards the endpoint the external scheduler calls.
// With no secret configured the endpoint is closed.
func SweepSecretMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := c.Get("X-Sweep-Secret")
		if cfg.SweepSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(cfg.SweepSecret)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden",
			})
		}
		return c.Next()
	}
}
