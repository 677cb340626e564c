package product

import (
	"context"

	"petshop/internal/domain"
)

// ListFilter narrows product listings.
type ListFilter struct {
	CategoryID *int64
	ActiveOnly bool
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// GetByIDs returns the products found for ids, keyed by id. Missing ids are
	// simply absent from the map.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
