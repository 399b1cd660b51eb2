package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

func TestPricingRules_Quote(t *testing.T) {
	tests := []struct {
		name  string
		items []entity.CartItem
		want  entity.Totals
	}{
		{
			name:  "free shipping at threshold",
			items: []entity.CartItem{{ProductID: "mug", UnitPrice: 200, Quantity: 2}},
			want:  entity.Totals{Subtotal: 400, Tax: 72, Shipping: 0, Total: 472},
		},
		{
			name:  "flat fee below threshold",
			items: []entity.CartItem{{ProductID: "pen", UnitPrice: 100, Quantity: 1}},
			want:  entity.Totals{Subtotal: 100, Tax: 18, Shipping: 5000, Total: 5118},
		},
		{
			name:  "exactly at threshold",
			items: []entity.CartItem{{ProductID: "a", UnitPrice: 300, Quantity: 1}},
			want:  entity.Totals{Subtotal: 300, Tax: 54, Shipping: 0, Total: 354},
		},
		{
			name:  "half up rounding",
			items: []entity.CartItem{{ProductID: "a", UnitPrice: 25, Quantity: 1}},
			// 25 * 0.18 = 4.5 -> 5
			want: entity.Totals{Subtotal: 25, Tax: 5, Shipping: 5000, Total: 5030},
		},
		{
			name:  "empty cart",
			items: nil,
			want:  entity.Totals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testPricing.Quote(tt.items)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Balanced())
		})
	}
}

func TestPricingRules_QuoteRejectsInvalidLines(t *testing.T) {
	_, err := testPricing.Quote([]entity.CartItem{{ProductID: "a", UnitPrice: 10, Quantity: 0}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = testPricing.Quote([]entity.CartItem{{ProductID: "a", UnitPrice: -1, Quantity: 1}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
