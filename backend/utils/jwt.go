package utils

import (
	"cactus/backend/config"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Identity is what the identity provider tells us about the caller.
type Identity struct {
	UserID string
	Email  string
}

const identityKey = "identity"

// GenerateJWTToken issues a token in the identity provider's format. The
// service itself never logs anyone in; this is used by tests and the CLI.
func GenerateJWTToken(userID, email string, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(time.Hour * 72).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func ExtractIdentityFromToken(c *fiber.Ctx, cfg *config.Config) (Identity, error) {
	tokenString := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if tokenString == "" {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})

	if err != nil {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}
	email, _ := claims["email"].(string)

	return Identity{UserID: userID, Email: email}, nil
}

// SetIdentity stores the resolved caller for downstream handlers.
func SetIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(identityKey, id)
}

// CurrentIdentity returns the identity stored by the auth middleware.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityKey).(Identity)
	return id, ok
}
