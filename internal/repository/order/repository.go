package order

import (
	"context"

	"petshop/internal/domain"
)

type Repository interface {
	// Create inserts the order and its items in one transaction and returns the
	// stored order with ids and timestamps filled in.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error
}
