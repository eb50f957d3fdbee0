package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/catalog"
)

type CatalogHandler struct {
	Catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{Catalog: c}
}

// categoryQuery accepts a display name ("Appliance Repair") or a slug.
func categoryQuery(c *fiber.Ctx) (models.Category, error) {
	raw := strings.TrimSpace(c.Query("category"))
	if raw == "" {
		return "", nil
	}
	if cat := models.Category(raw); cat.Valid() {
		return cat, nil
	}
	if cat, found := models.CategoryFromSlug(raw); found {
		return cat, nil
	}
	errs := apperr.FieldErrors{}
	errs.Add("category", "unknown category")
	return "", apperr.Validation("unknown category", errs)
}

// GetCategories lists the fixed category set with slugs.
func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	out := make([]fiber.Map, 0, len(models.Categories))
	for _, cat := range models.Categories {
		out = append(out, fiber.Map{"name": cat, "slug": cat.Slug()})
	}
	return ok(c, fiber.StatusOK, "", out)
}

func (h *CatalogHandler) List(c *fiber.Ctx) error {
	cat, err := categoryQuery(c)
	if err != nil {
		return fail(c, err)
	}
	groups, err := h.Catalog.ListGrouped(c.UserContext(), c.Query("search"), cat)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{
		"categories": groups,
		"search":     c.Query("search"),
		"category":   cat,
	})
}

func (h *CatalogHandler) ByCategory(c *fiber.Ctx) error {
	group, err := h.Catalog.ListByCategorySlug(c.UserContext(), c.Params("slug"), c.Query("search"))
	if err != nil {
		return fail(c, err, redirectHome)
	}
	return ok(c, fiber.StatusOK, "", group)
}

func (h *CatalogHandler) Providers(c *fiber.Ctx) error {
	list, err := h.Catalog.ListProviders(c.UserContext(), c.Query("search"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", list)
}

func (h *CatalogHandler) Detail(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err, redirectHome)
	}
	d, err := h.Catalog.Detail(c.UserContext(), id)
	if err != nil {
		return fail(c, err, redirectHome)
	}
	return ok(c, fiber.StatusOK, "", d)
}

func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	var req catalog.ServiceLine
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	svc, err := h.Catalog.CreateService(c.UserContext(), actor(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Service added successfully!", svc)
}

func (h *CatalogHandler) ToggleAvailability(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	svc, err := h.Catalog.ToggleAvailability(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err, redirectProviderBookings)
	}
	msg := "Service is now unavailable."
	if svc.IsAvailable {
		msg = "Service is now available."
	}
	return ok(c, fiber.StatusOK, msg, svc)
}
