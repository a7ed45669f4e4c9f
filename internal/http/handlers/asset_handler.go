package handlers

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	applog "shopfront/internal/log"
	"shopfront/internal/storage"
	"shopfront/internal/validate"
)

type AssetHandler struct {
	Files storage.Storage
}

// GET /assets/:filename serves a stored image. Only generated names are
// looked up, which rules out traversal.
func (h *AssetHandler) Serve(c *fiber.Ctx) error {
	name, ok := validate.AssetName(c.Params("filename"))
	if !ok {
		applog.Security(c, "assets.traversal.block", map[string]any{"path": c.Params("filename")})
		return notFound(c, "asset")
	}
	rc, err := h.Files.Open(c.UserContext(), name)
	if err != nil {
		return err
	}
	c.Type(filepath.Ext(name)[1:])
	return c.SendStream(rc)
}
