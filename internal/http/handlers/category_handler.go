package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopfront/internal/apperr"
	"shopfront/internal/services"
	"shopfront/internal/validate"
)

type CategoryHandler struct {
	Categories *services.CategoryService
}

// GET /categories
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	roots, err := h.Categories.Forest(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(roots)
}

// GET /categories/:id
func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "category")
	}
	cat, ok, err := h.Categories.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.E("http.category", apperr.NotFound, nil)
	}
	return c.JSON(cat)
}
