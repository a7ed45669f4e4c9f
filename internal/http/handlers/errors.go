package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopfront/internal/apperr"
	applog "shopfront/internal/log"
)

func status(k apperr.Kind) int {
	switch k {
	case apperr.Invalid, apperr.InvalidMimeType, apperr.MultipartFieldMissing:
		return fiber.StatusBadRequest
	case apperr.NotFound:
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler turns handler errors into {"message": ...} responses. Server
// side failures are logged with their cause and answered generically.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		c.Status(fe.Code)
		if fe.Code >= fiber.StatusInternalServerError {
			applog.Error(c, "server.error", err, nil)
			return c.JSON(fiber.Map{"message": "Internal Server Error"})
		}
		msg := fe.Message
		if fe.Code == fiber.StatusNotFound {
			msg = "Resource Not Found"
		}
		return c.JSON(fiber.Map{"message": msg})
	}

	kind := apperr.KindOf(err)
	c.Status(status(kind))
	if kind.Client() {
		applog.Security(c, "request.rejected", map[string]any{"kind": kind.String(), "reason": err.Error()})
	} else {
		applog.Error(c, "server.error", err, map[string]any{"kind": kind.String()})
	}
	return c.JSON(fiber.Map{"message": apperr.Message(err)})
}

func notFound(c *fiber.Ctx, field string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return apperr.E("http."+field, apperr.NotFound, nil)
}
