package dto

import "github.com/spec-kit/northwind-service/internal/domain"

// PageMeta describes the window returned by a listing.
type PageMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// PageResponse wraps a catalog listing.
type PageResponse struct {
	Data []domain.Record `json:"data"`
	Meta PageMeta        `json:"meta"`
}

// NewPageResponse builds the listing envelope for page.
func NewPageResponse(page *domain.Page) PageResponse {
	return PageResponse{
		Data: page.Items,
		Meta: PageMeta{Limit: page.Limit, Offset: page.Offset, Count: len(page.Items)},
	}
}
