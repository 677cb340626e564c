package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"

	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"

	PaymentMethodCard = "CARD"
)

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          int64           `json:"userId"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"paymentStatus"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	ShippingAddress string          `json:"shippingAddress"`
	ShippingCity    string          `json:"shippingCity"`
	ShippingState   string          `json:"shippingState"`
	ShippingZipCode string          `json:"shippingZipCode"`
	ShippingPhone   string          `json:"shippingPhone"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	IdempotencyKey  string          `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Items           []OrderItem     `json:"items"`
}

// OrderItem snapshots product name and price so later catalog edits do not
// change historical orders.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"orderId"`
	ProductID    int64           `json:"productId"`
	Quantity     int             `json:"quantity"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
}

// Subtotal returns price × quantity for the item.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
