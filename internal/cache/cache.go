package cache

import (
	"context"
	"errors"

	"petshop/internal/domain"
)

// CartCache stores priced cart views per user.
type CartCache interface {
	Get(ctx context.Context, userID int64) (*domain.CartView, error)
	Set(ctx context.Context, userID int64, view *domain.CartView) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop is a CartCache that never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, int64) (*domain.CartView, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, int64, *domain.CartView) error   { return nil }
func (Nop) Delete(context.Context, int64) error                  { return nil }
