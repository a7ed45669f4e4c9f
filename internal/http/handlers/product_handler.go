package handlers

import (
	"bytes"
	"mime"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"shopfront/internal/apperr"
	"shopfront/internal/domain"
	"shopfront/internal/services"
	"shopfront/internal/validate"
)

type ProductHandler struct {
	Products *services.ProductService
}

func productID(c *fiber.Ctx) (int64, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return 0, notFound(c, "product")
	}
	return id, nil
}

// GET /products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	ps, err := h.Products.GetAll(c.UserContext())
	if err != nil {
		return err
	}
	if ps == nil {
		ps = []domain.Product{}
	}
	return c.JSON(ps)
}

// GET /products/:id
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	p, ok, err := h.Products.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.E("http.product", apperr.NotFound, nil)
	}
	return c.JSON(p)
}

func body(c *fiber.Ctx) (domain.NewProduct, error) {
	var in domain.NewProduct
	if err := c.BodyParser(&in); err != nil {
		return in, &apperr.Error{Op: "http.product_body", Kind: apperr.Invalid, Err: err, Message: "Invalid request: expected JSON {name, price}."}
	}
	return in, nil
}

// POST /products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	in, err := body(c)
	if err != nil {
		return err
	}
	p, err := h.Products.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /products/:id
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	in, err := body(c)
	if err != nil {
		return err
	}
	p, ok, err := h.Products.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.E("http.product", apperr.NotFound, nil)
	}
	return c.JSON(p)
}

// DELETE /products/:id removes the product, its asset rows and files.
// Deleting an absent product succeeds.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	if err := h.Products.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// POST /products/:id/assets (multipart, field "image")
func (h *ProductHandler) AddAsset(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	mr, err := multipartReader(c)
	if err != nil {
		return err
	}
	a, err := h.Products.AddAsset(c.UserContext(), id, mr)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// multipartReader streams parts out of the buffered request body.
func multipartReader(c *fiber.Ctx) (*multipart.Reader, error) {
	mt, params, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	if err != nil || mt != fiber.MIMEMultipartForm || params["boundary"] == "" {
		return nil, apperr.E("http.upload", apperr.MultipartFieldMissing, err)
	}
	return multipart.NewReader(bytes.NewReader(c.Body()), params["boundary"]), nil
}
