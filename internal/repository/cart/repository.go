package cart

import (
	"context"

	"petshop/internal/domain"
)

// NewLine is a line to add to a cart. Price and name are taken from Product.
type NewLine struct {
	Product  domain.Product
	Quantity int
	Size     string
	Color    string
}

type Repository interface {
	// GetOrCreateActive returns the user's active cart, creating it on first use.
	GetOrCreateActive(ctx context.Context, userID int64) (*domain.Cart, error)
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)
	// AddLineItems merges lines into the cart in one transaction. Lines with the
	// same (product, size, color) as an existing line increase its quantity.
	AddLineItems(ctx context.Context, cartID int64, lines []NewLine) error
	ChangeLineItemQuantity(ctx context.Context, cartID, lineID int64, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, lineID int64) error
	ClearLineItems(ctx context.Context, cartID int64) error
}
