package web

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/incaya/farmbot-school-backend/pkg/auth"
	"github.com/incaya/farmbot-school-backend/pkg/models"
)

type identityKey struct{}

// RequireAuth verifies the bearer token and stores the caller identity in the request locals.
func RequireAuth(secret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return unauthorized(c, "missing bearer token")
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(identityKey{}, claims.Identity())

		return c.Next()
	}
}

// RequireRole rejects callers without role. It must run after RequireAuth.
func RequireRole(role models.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		caller, ok := identity(c)
		if !ok {
			return unauthorized(c, "missing bearer token")
		}

		if caller.Role != role {
			return forbidden(c, "this operation requires the "+string(role)+" role")
		}

		return c.Next()
	}
}

func identity(c fiber.Ctx) (auth.Identity, bool) {
	caller, ok := c.Locals(identityKey{}).(auth.Identity)

	return caller, ok
}
