// Package pricing derives cart summaries from catalog prices.
package pricing

import (
	"github.com/shopspring/decimal"

	"petshop/internal/domain"
)

// Policy holds the shipping rule. A zero FreeShippingThreshold never waives
// the fee.
type Policy struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Shipping returns the shipping charge for a subtotal. Empty carts ship free.
func (p Policy) Shipping(subtotal decimal.Decimal, itemCount int) decimal.Decimal {
	if itemCount == 0 || !p.ShippingFee.IsPositive() {
		return decimal.Zero
	}
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// Summarize totals the lines and applies shipping.
func (p Policy) Summarize(lines []domain.CartLine) domain.CartSummary {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		count += line.Quantity
	}
	shipping := p.Shipping(subtotal, count)
	return domain.CartSummary{
		Subtotal:  subtotal.Round(2),
		Shipping:  shipping.Round(2),
		Total:     subtotal.Add(shipping).Round(2),
		ItemCount: count,
	}
}

// OrderTotal is the amount charged for the given order items.
func (p Policy) OrderTotal(items []domain.OrderItem) decimal.Decimal {
	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
		count += item.Quantity
	}
	return subtotal.Add(p.Shipping(subtotal, count)).Round(2)
}
