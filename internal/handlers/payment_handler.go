package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/booking"
)

// PaymentHandler serves the gateway's browser redirects. These routes are
// public: the signed payload, not the session, authenticates them.
type PaymentHandler struct {
	Engine *booking.Engine
}

func NewPaymentHandler(engine *booking.Engine) *PaymentHandler {
	return &PaymentHandler{Engine: engine}
}

func retryURL(id uint) string {
	return "/api/bookings/" + strconv.FormatUint(uint64(id), 10) + "/payment"
}

func (h *PaymentHandler) EsewaSuccess(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectMyBookings)
	}
	data := c.Query("data")
	if data == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":  false,
			"message":  "Invalid payment response.",
			"redirect": redirectMyBookings,
		})
	}

	b, res, err := h.Engine.ConfirmGatewayPayment(c.UserContext(), id, data)
	if err != nil {
		return fail(c, err, redirectMyBookings)
	}

	if !res.Complete {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":   false,
			"message":   "Payment was not completed.",
			"retry_url": retryURL(id),
			"data":      fiber.Map{"booking": b, "gateway_status": res.Status},
		})
	}
	return ok(c, fiber.StatusOK, "Payment successful via eSewa!", fiber.Map{
		"booking":          b,
		"transaction_code": res.TransactionCode,
	})
}

// EsewaFailure is where the gateway sends a cancelled payment. The booking
// is left as it is so the customer can retry.
func (h *PaymentHandler) EsewaFailure(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectMyBookings)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   false,
		"message":   "Payment failed or was cancelled. Please try again.",
		"retry_url": retryURL(id),
		"redirect":  redirectMyBookings,
	})
}
