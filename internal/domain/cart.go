package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"createdAt"`
	Lines     []CartLine `json:"items"`
}

type CartLine struct {
	ID          int64           `json:"id"`
	CartID      int64           `json:"cartId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CartSummary is derived from cart lines and never persisted.
type CartSummary struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// CartView is what cart endpoints return: the lines plus their summary.
type CartView struct {
	Items   []CartLine  `json:"items"`
	Summary CartSummary `json:"summary"`
}

// CartItemInput identifies a product variant and quantity without a price.
type CartItemInput struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

const CartStateActive = "active"
