package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name     string
		base     int64
		guests   int
		discount int64
		rate     string
		want     Summary
	}{
		{
			name: "reference case", base: 1000, guests: 2, discount: 200, rate: "0.10",
			want: Summary{BasePrice: 1000, Guests: 2, Subtotal: 2000, Discount: 200, TaxableAmount: 1800, Tax: 180, Total: 1980},
		},
		{
			name: "discount clamped to subtotal", base: 500, guests: 1, discount: 900, rate: "0.10",
			want: Summary{BasePrice: 500, Guests: 1, Subtotal: 500, Discount: 500, TaxableAmount: 0, Tax: 0, Total: 0},
		},
		{
			name: "tax rounds half up", base: 1005, guests: 1, discount: 0, rate: "0.10",
			want: Summary{BasePrice: 1005, Guests: 1, Subtotal: 1005, Discount: 0, TaxableAmount: 1005, Tax: 101, Total: 1106},
		},
		{
			name: "zero rate", base: 2500, guests: 4, discount: 1000, rate: "0",
			want: Summary{BasePrice: 2500, Guests: 4, Subtotal: 10000, Discount: 1000, TaxableAmount: 9000, Tax: 0, Total: 9000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePrice(tt.base, tt.guests, tt.discount, decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputePrice_Deterministic(t *testing.T) {
	first := ComputePrice(1000, 2, 200, DefaultTaxRate)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ComputePrice(1000, 2, 200, DefaultTaxRate))
	}
}
