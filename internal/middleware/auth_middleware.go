package middleware

import (
	"strings"

	"go-stock-resi/internal/model"

	"github.com/gofiber/fiber/v2"
)

const sessionKey = "session"

// SessionResolver turns a bearer token into the session it was issued for.
type SessionResolver interface {
	Resolve(token string) (model.Session, error)
}

// Session resolves the optional bearer token into a model.Session stored in
// the request locals. Requests without a token act anonymously; a token that
// does not validate is rejected.
func Session(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			c.Locals(sessionKey, model.Session{})
			return c.Next()
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		session, err := resolver.Resolve(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals(sessionKey, session)
		return c.Next()
	}
}

// CurrentSession returns the session set by Session, or an anonymous one.
func CurrentSession(c *fiber.Ctx) model.Session {
	if s, ok := c.Locals(sessionKey).(model.Session); ok {
		return s
	}
	return model.Session{}
}
