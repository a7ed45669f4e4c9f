package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"shopfront/internal/apperr"
	"shopfront/internal/repos"
	"shopfront/internal/services"
	"shopfront/internal/storage"
)

type Deps struct {
	ProductHandler  *ProductHandler
	CategoryHandler *CategoryHandler
	AssetHandler    *AssetHandler
	HealthHandler   *HealthHandler
}

func NewDeps(db *sqlx.DB, files storage.Storage) *Deps {
	productStore := repos.NewProductStore(db)
	catRepo := repos.NewCategoryRepo(db)

	productSvc := services.NewProductService(productStore, files)
	catSvc := services.NewCategoryService(catRepo)

	return &Deps{
		ProductHandler:  &ProductHandler{Products: productSvc},
		CategoryHandler: &CategoryHandler{Categories: catSvc},
		AssetHandler:    &AssetHandler{Files: files},
		HealthHandler:   &HealthHandler{DB: db},
	}
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

// GET /healthz
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.DB.PingContext(c.UserContext()); err != nil {
		return apperr.E("http.healthz", apperr.ConnectionFailed, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
