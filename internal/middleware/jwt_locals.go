package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/utils"
)

func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			return fiber.ErrUnauthorized
		}

		uid := strings.TrimSpace(claims.UserID)
		if uid == "" {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", uid)
		c.Locals("roles", claims.Roles)

		return c.Next()
	}
}

// ActorLoader resolves a token subject to its current user row.
type ActorLoader interface {
	Actor(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoadActor puts the fresh user row in c.Locals("actor"). Deleted or
// deactivated accounts are rejected even while their token is valid.
func LoadActor(loader ActorLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userId").(string)
		id, err := uuid.Parse(uid)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		u, err := loader.Actor(c.UserContext(), id)
		if err != nil || u == nil || !u.IsActive {
			return fiber.ErrUnauthorized
		}

		c.Locals("actor", u)
		return c.Next()
	}
}

// Actor returns the user loaded by LoadActor, or nil.
func Actor(c *fiber.Ctx) *models.User {
	u, _ := c.Locals("actor").(*models.User)
	return u
}
