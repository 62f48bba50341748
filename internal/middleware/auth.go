package middleware

import (
	"strings"

	"bluecarbon-backend/internal/auth"
	"bluecarbon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const actorLocal = "actor"

// Actor is the authenticated caller attached to the request context.
type Actor struct {
	Address string
	Role    string
}

// RequireAuth validates the bearer session token and attaches the actor to
// Locals. Returns 401 with the standard error format on any failure.
func RequireAuth(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return response.Unauthorized(c, "Unauthorized")
		}
		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(actorLocal, Actor{Address: claims.Address, Role: claims.Role})
		return c.Next()
	}
}

// GetActor returns the authenticated actor (zero value if the route is not
// behind RequireAuth).
func GetActor(c *fiber.Ctx) Actor {
	if a, ok := c.Locals(actorLocal).(Actor); ok {
		return a
	}
	return Actor{}
}
