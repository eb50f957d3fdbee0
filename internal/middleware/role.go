package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireRoles lets the request through when the actor holds any of the
// allowed roles. It must run after LoadActor.
func RequireRoles(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := Actor(c)
		if u == nil {
			return fiber.ErrUnauthorized
		}

		for _, r := range allowed {
			if u.HasRole(r) {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient role")
	}
}
