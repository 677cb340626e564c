package domain

import "github.com/shopspring/decimal"

func init() {
	// Amounts leave the API as JSON numbers, matching what clients submit.
	decimal.MarshalJSONWithoutQuotes = true
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to integer minor units, rounding
// half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back to a major-unit amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
