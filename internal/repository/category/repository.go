package category

import (
	"context"

	"petshop/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetByKey(ctx context.Context, key string) (*domain.Category, error)
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}
