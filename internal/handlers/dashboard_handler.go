package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/dashboard"
)

type DashboardHandler struct {
	Dashboard *dashboard.Dashboard
}

func NewDashboardHandler(d *dashboard.Dashboard) *DashboardHandler {
	return &DashboardHandler{Dashboard: d}
}

func (h *DashboardHandler) Home(c *fiber.Ctx) error {
	st, err := h.Dashboard.Home(c.UserContext(), actor(c))
	if err != nil {
		return fail(c, err, redirectHome)
	}
	return ok(c, fiber.StatusOK, "", st)
}

func (h *DashboardHandler) listUsers(c *fiber.Ctx, role string) error {
	users, err := h.Dashboard.Users(c.UserContext(), actor(c), c.Query("search"), role)
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	return ok(c, fiber.StatusOK, "", users)
}

func (h *DashboardHandler) Users(c *fiber.Ctx) error {
	return h.listUsers(c, c.Query("role"))
}

func (h *DashboardHandler) Customers(c *fiber.Ctx) error {
	return h.listUsers(c, models.RoleCustomer)
}

func (h *DashboardHandler) Providers(c *fiber.Ctx) error {
	return h.listUsers(c, models.RoleProvider)
}

func (h *DashboardHandler) Services(c *fiber.Ctx) error {
	cat, err := categoryQuery(c)
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	list, err := h.Dashboard.Services(c.UserContext(), actor(c), c.Query("search"), cat)
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	return ok(c, fiber.StatusOK, "", list)
}

func (h *DashboardHandler) listBookings(c *fiber.Ctx, status models.BookingStatus) error {
	list, err := h.Dashboard.Bookings(c.UserContext(), actor(c), c.Query("search"), status)
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	return ok(c, fiber.StatusOK, "", list)
}

func (h *DashboardHandler) Bookings(c *fiber.Ctx) error {
	return h.listBookings(c, models.BookingStatus(strings.TrimSpace(c.Query("status"))))
}

func (h *DashboardHandler) PendingBookings(c *fiber.Ctx) error {
	return h.listBookings(c, models.BookingPending)
}

func (h *DashboardHandler) UpdateBookingStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	b, err := h.Dashboard.UpdateBookingStatus(c.UserContext(), actor(c), id, models.BookingStatus(req.Status))
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	return ok(c, fiber.StatusOK, "Booking status updated to "+string(b.Status)+".", b)
}

func (h *DashboardHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, apperr.New(apperr.KindNotFound, "user not found"), redirectDashboard)
	}
	if err := h.Dashboard.DeleteUser(c.UserContext(), actor(c), id); err != nil {
		return fail(c, err, redirectDashboard)
	}
	return ok(c, fiber.StatusOK, "User deleted successfully.", nil)
}

func (h *DashboardHandler) DeleteService(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	if err := h.Dashboard.DeleteService(c.UserContext(), actor(c), id); err != nil {
		return fail(c, err, redirectDashboard)
	}
	return ok(c, fiber.StatusOK, "Service deleted successfully.", nil)
}

func (h *DashboardHandler) DeleteBooking(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectDashboard)
	}
	if err := h.Dashboard.DeleteBooking(c.UserContext(), actor(c), id); err != nil {
		return fail(c, err, redirectDashboard)
	}
	return ok(c, fiber.StatusOK, "Booking deleted successfully.", nil)
}
