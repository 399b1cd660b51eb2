package service

import (
	"fmt"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// PricingRules — правила расчета сумм в минимальных единицах валюты.
// Налог задается в базисных пунктах (1800 = 18%).
type PricingRules struct {
	TaxRateBps            int64
	FreeShippingThreshold int64
	ShippingFee           int64
}

// Quote считает subtotal, налог, доставку и итог по строкам.
// Налог округляется половиной вверх; доставка бесплатна от порога.
func (p PricingRules) Quote(items []entity.CartItem) (entity.Totals, error) {
	var subtotal int64
	for _, it := range items {
		if it.Quantity < 1 {
			return entity.Totals{}, fmt.Errorf("%w: quantity of %s must be at least 1", apperrors.ErrValidation, it.ProductID)
		}
		if it.UnitPrice < 0 {
			return entity.Totals{}, fmt.Errorf("%w: unit price of %s must not be negative", apperrors.ErrValidation, it.ProductID)
		}
		subtotal += it.LineTotal()
	}

	tax := (subtotal*p.TaxRateBps + 5000) / 10000

	var shipping int64
	if subtotal > 0 && subtotal < p.FreeShippingThreshold {
		shipping = p.ShippingFee
	}

	return entity.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}, nil
}
