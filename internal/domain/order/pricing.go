package order

import "math"

const (
	taxRate           = 0.18
	flatShipping      = 49
	freeShippingAbove = 999
)

// Pricing holds the derived charge breakdown of an order.
type Pricing struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Total    float64
}

// ComputePricing derives tax, shipping and total from a subtotal accumulated
// over frozen cart-line prices. Tax is 18% rounded to 2 decimals; shipping is
// waived above 999.
func ComputePricing(subtotal float64) Pricing {
	tax := round2(subtotal * taxRate)
	shipping := float64(flatShipping)
	if subtotal > freeShippingAbove {
		shipping = 0
	}
	return Pricing{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    round2(subtotal + tax + shipping),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
