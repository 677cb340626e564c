package product

import (
	"context"

	"petshop/internal/domain"
	productrepo "petshop/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns active products, optionally limited to one category.
func (s *Service) List(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	return s.repo.List(ctx, productrepo.ListFilter{CategoryID: categoryID, ActiveOnly: true})
}

// Get returns an active product. Inactive products are reported as not found.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *Service) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	return s.repo.Upsert(ctx, p)
}
