package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// VATRateBasisPoints is the fixed VAT rate applied to the discounted subtotal.
// Policy constant, not server-authoritative.
const VATRateBasisPoints = 800

// PricingSnapshot is the fully derived set of monetary figures for the current
// checkout state. All fields are non-negative; DiscountAmount is the positive
// magnitude subtracted from the subtotal.
type PricingSnapshot struct {
	Subtotal       int64   `json:"subtotal"`
	DiscountAmount int64   `json:"discountAmount"`
	VATAmount      int64   `json:"vatAmount"`
	ShippingFee    int64   `json:"shippingFee"`
	DistanceKm     float64 `json:"distanceKm"`
	Total          int64   `json:"total"`
}

// Aggregate folds the items into the derived cart aggregates.
func Aggregate(items []CartItem) (itemCount int, total int64) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		itemCount += item.Quantity
		total += item.LineTotal()
	}
	return itemCount, total
}

// ComputePricing derives a snapshot from its inputs. It is a pure function:
// callers recompute on every input change instead of patching fields.
func ComputePricing(items []CartItem, discount int64, shippingFee int64, distanceKm float64, method DeliveryMethod) PricingSnapshot {
	_, subtotal := Aggregate(items)

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	net := subtotal - discount
	vat := net * VATRateBasisPoints / 10000

	fee := int64(0)
	distance := float64(0)
	if method == DeliveryMethodDelivery {
		if shippingFee > 0 {
			fee = shippingFee
		}
		if distanceKm > 0 {
			distance = distanceKm
		}
	}

	return PricingSnapshot{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		VATAmount:      vat,
		ShippingFee:    fee,
		DistanceKm:     distance,
		Total:          net + vat + fee,
	}
}

var vndPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND renders a minor-unit-free VND amount with grouping, e.g. "20.000 ₫".
func FormatVND(amount int64) string {
	return vndPrinter.Sprintf("%d ₫", amount)
}
