package category

import (
	"context"

	"petshop/internal/domain"
	"petshop/internal/repository/category"
)

type Service struct {
	repo category.Repository
}

func New(repo category.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByKey(ctx context.Context, key string) (*domain.Category, error) {
	return s.repo.GetByKey(ctx, key)
}

func (s *Service) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	return s.repo.Upsert(ctx, c)
}
