package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/booking"
)

type BookingHandler struct {
	Engine *booking.Engine
	// BaseURL prefixes gateway callback URLs. It is only empty in development,
	// where the request origin is used.
	BaseURL string
}

func NewBookingHandler(engine *booking.Engine, baseURL string) *BookingHandler {
	return &BookingHandler{Engine: engine, BaseURL: baseURL}
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectHome)
	}
	var req booking.CreateInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	b, err := h.Engine.CreateBooking(c.UserContext(), actor(c), serviceID, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Booking created successfully!", b)
}

func (h *BookingHandler) Mine(c *fiber.Ctx) error {
	list, err := h.Engine.ListForCustomer(c.UserContext(), actor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", list)
}

func (h *BookingHandler) Pay(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectMyBookings)
	}
	base := h.BaseURL
	if base == "" {
		base = c.BaseURL()
	}

	out, err := h.Engine.InitiatePayment(c.UserContext(), actor(c), id, base)
	if err != nil {
		return fail(c, err, redirectMyBookings)
	}
	if out.Request != nil {
		return ok(c, fiber.StatusOK, "Continue to eSewa to complete the payment.", fiber.Map{
			"booking": out.Booking,
			"gateway": out.Request,
		})
	}
	return ok(c, fiber.StatusOK, "Payment successful via "+string(out.Booking.PaymentMethod)+"!", fiber.Map{
		"booking": out.Booking,
	})
}

func (h *BookingHandler) ProviderBookings(c *fiber.Ctx) error {
	status := models.BookingStatus(strings.TrimSpace(c.Query("status")))
	overview, err := h.Engine.ProviderOverview(c.UserContext(), actor(c), status)
	if err != nil {
		return fail(c, err, redirectHome)
	}
	return ok(c, fiber.StatusOK, "", overview)
}

type statusReq struct {
	Status string `json:"status" form:"status"`
}

func (h *BookingHandler) AdvanceStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectProviderBookings)
	}
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	b, err := h.Engine.AdvanceStatus(c.UserContext(), actor(c), id, models.BookingStatus(req.Status))
	if err != nil {
		return fail(c, err, redirectProviderBookings)
	}
	return ok(c, fiber.StatusOK, "Booking #"+strconv.FormatUint(uint64(b.ID), 10)+" is now "+string(b.Status)+".", b)
}

func (h *BookingHandler) MarkPaymentReceived(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectProviderBookings)
	}
	b, err := h.Engine.MarkPaymentReceived(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err, redirectProviderBookings)
	}
	return ok(c, fiber.StatusOK, "Payment marked as received.", b)
}
