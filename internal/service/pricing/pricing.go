// Package pricing turns a unit price, guest count and discount into the
// frozen price summary stored on a booking. Amounts are minor units.
package pricing

import "github.com/shopspring/decimal"

// DefaultTaxRate is applied when no rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.10")

type Summary struct {
	BasePrice     int64
	Guests        int
	Subtotal      int64
	Discount      int64
	TaxableAmount int64
	Tax           int64
	Total         int64
}

// ComputePrice is pure; equal inputs give equal output. The discount is
// clamped to the subtotal and tax is rounded half away from zero.
func ComputePrice(basePrice int64, guests int, discount int64, taxRate decimal.Decimal) Summary {
	subtotal := basePrice * int64(guests)
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	taxable := subtotal - discount
	tax := decimal.NewFromInt(taxable).Mul(taxRate).Round(0).IntPart()

	return Summary{
		BasePrice:     basePrice,
		Guests:        guests,
		Subtotal:      subtotal,
		Discount:      discount,
		TaxableAmount: taxable,
		Tax:           tax,
		Total:         taxable + tax,
	}
}
