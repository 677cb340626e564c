package product

import (
	"context"
	"errors"
	"testing"

	"petshop/internal/domain"
	productrepo "petshop/internal/repository/product"
)

type stubRepo struct {
	product    *domain.Product
	getErr     error
	lastFilter productrepo.ListFilter
}

func (s *stubRepo) List(_ context.Context, filter productrepo.ListFilter) ([]domain.Product, error) {
	s.lastFilter = filter
	return nil, nil
}

func (s *stubRepo) GetByID(_ context.Context, _ int64) (*domain.Product, error) {
	return s.product, s.getErr
}

func (s *stubRepo) GetByIDs(_ context.Context, _ []int64) (map[int64]domain.Product, error) {
	return nil, nil
}

func (s *stubRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

func TestListOnlyActive(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo)
	cat := int64(3)

	if _, err := svc.List(context.Background(), &cat); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.lastFilter.ActiveOnly || repo.lastFilter.CategoryID == nil || *repo.lastFilter.CategoryID != 3 {
		t.Fatalf("unexpected filter %+v", repo.lastFilter)
	}
}

func TestGetHidesInactive(t *testing.T) {
	svc := New(&stubRepo{product: &domain.Product{ID: 1, Active: false}})

	if _, err := svc.Get(context.Background(), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetActive(t *testing.T) {
	svc := New(&stubRepo{product: &domain.Product{ID: 1, Active: true}})

	p, err := svc.Get(context.Background(), 1)
	if err != nil || p.ID != 1 {
		t.Fatalf("unexpected result %+v %v", p, err)
	}
}
