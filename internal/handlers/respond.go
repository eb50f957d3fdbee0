package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

// Landing views a failed request points the client back to.
const (
	redirectHome             = "/"
	redirectMyBookings       = "/bookings/mine"
	redirectProviderBookings = "/provider/bookings"
	redirectDashboard        = "/admin"
)

func ok(c *fiber.Ctx, status int, msg string, data interface{}) error {
	body := fiber.Map{"success": true, "message": msg}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

// fail writes the error envelope. Internal errors are logged and their
// cause is never sent to the client.
func fail(c *fiber.Ctx, err error, redirect ...string) error {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}

	body := fiber.Map{"success": false, "message": e.Message}
	if e.Kind == apperr.KindInternal {
		body["message"] = "internal server error"
	}
	if !e.Fields.Empty() {
		body["errors"] = e.Fields
	}
	if len(redirect) > 0 && redirect[0] != "" {
		body["redirect"] = redirect[0]
	}
	return c.Status(e.Kind.HTTPStatus()).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "invalid body",
	})
}

// ErrorHandler renders errors returned by middleware and unmatched routes
// in the same envelope as handler failures.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}
	return fail(c, err)
}

func actor(c *fiber.Ctx) *models.User {
	return middleware.Actor(c)
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.New(apperr.KindNotFound, "not found")
	}
	return uint(n), nil
}
