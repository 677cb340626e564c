package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
}
