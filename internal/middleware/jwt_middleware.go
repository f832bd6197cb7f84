package middleware

import (
	"strings"

	"gabarito/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserIDKey is the Fiber local holding the acting user id.
const UserIDKey = "user_id"

// Identity resolves the acting user from an optional bearer token. Requests
// without an Authorization header continue anonymously; a malformed or
// invalid token is rejected. With no secret configured the header is ignored.
func Identity(authService *services.AuthService, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" || authService == nil || !authService.Enabled() {
			return c.Next()
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header format must be 'Bearer <token>'",
			})
		}

		userID, err := authService.UserID(strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Info("JWT validation failed", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// UserID returns the acting user stored by Identity, or "" when anonymous.
func UserID(c *fiber.Ctx) string {
	if v, ok := c.Locals(UserIDKey).(string); ok {
		return v
	}
	return ""
}
