package service

import (
	"context"

	"github.com/spec-kit/northwind-service/internal/domain"
	"github.com/spec-kit/northwind-service/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// CatalogService exposes paged, read-only access to the storefront tables.
type CatalogService struct {
	repo repository.CatalogRepository
}

// NewCatalogService builds the service.
func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// List returns one page of entity rows.
func (s *CatalogService) List(ctx context.Context, entity domain.Entity, limit, offset int) (*domain.Page, error) {
	limit, offset = normalizePage(limit, offset)
	items, err := s.repo.List(ctx, entity, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Record{}
	}
	return &domain.Page{Items: items, Limit: limit, Offset: offset}, nil
}

// Get returns a single row by primary key.
func (s *CatalogService) Get(ctx context.Context, entity domain.Entity, id string) (domain.Record, error) {
	return s.repo.Get(ctx, entity, id)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
