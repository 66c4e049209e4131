package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/northwind-service/internal/api/dto"
	"github.com/spec-kit/northwind-service/internal/domain"
	"github.com/spec-kit/northwind-service/internal/repository"
	"github.com/spec-kit/northwind-service/internal/service"
	apperrors "github.com/spec-kit/northwind-service/pkg/util/errorutil"
)

// CatalogHandler serves the read-only storefront listings.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List returns GET /api/<entity>.
func (h *CatalogHandler) List(entity domain.Entity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := h.catalog.List(c.UserContext(), entity, c.QueryInt("limit", 0), c.QueryInt("offset", 0))
		if err != nil {
			return catalogError(entity, err)
		}
		return c.JSON(dto.NewPageResponse(page))
	}
}

// Get returns GET /api/<entity>/:id.
func (h *CatalogHandler) Get(entity domain.Entity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		record, err := h.catalog.Get(c.UserContext(), entity, c.Params("id"))
		if err != nil {
			return catalogError(entity, err)
		}
		return c.JSON(fiber.Map{"data": record})
	}
}

func catalogError(entity domain.Entity, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(string(entity), nil)
	case errors.Is(err, repository.ErrUnknownEntity):
		return apperrors.NewNotFound("resource", nil)
	case errors.Is(err, repository.ErrUnavailable):
		return apperrors.NewUnavailable("database unavailable", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}
