package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/accounts"
)

type ProfileHandler struct {
	Accounts *accounts.Accounts
}

func NewProfileHandler(a *accounts.Accounts) *ProfileHandler {
	return &ProfileHandler{Accounts: a}
}

func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, "", userView(actor(c)))
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var req accounts.ProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	u, err := h.Accounts.UpdateProfile(c.UserContext(), actor(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Your profile has been updated successfully!", userView(u))
}

func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	var req accounts.PasswordInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.Accounts.ChangePassword(c.UserContext(), actor(c), req); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Your password was successfully updated!", nil)
}
