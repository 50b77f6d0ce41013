package refund

import (
	"fmt"
	"math"

	"github.com/example/velora/internal/models"
)

// ResolvedPrice is the single authoritative price for one order line, derived
// from the line's possibly-conflicting stored price fields.
type ResolvedPrice struct {
	UnitPrice       float64
	OriginalPrice   float64
	DiscountPercent float64
	LineTotal       float64
	Warnings        []string
}

// ResolvePrice derives the unit price, original price and effective discount
// for one order line. It is a total function: missing or malformed fields
// fall through an ordered precedence chain and in the worst case produce a
// zero price with a data-quality warning, never an error. Refund estimation
// must not block on imperfect upstream data.
func ResolvePrice(item models.OrderItem) ResolvedPrice {
	var r ResolvedPrice

	if item.ItemType == models.ItemTypeBundle {
		r = resolveBundle(item)
	} else {
		r = resolveProduct(item)
	}

	qty := item.Quantity
	if qty <= 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("item %s: non-positive quantity %d, treating as 1", item.ID, qty))
		qty = 1
	}

	// Round once at the line level, not per unit, so rounding error does not
	// compound across components.
	r.LineTotal = round2(r.UnitPrice * float64(qty))
	return r
}

func resolveProduct(item models.OrderItem) ResolvedPrice {
	r := ResolvedPrice{OriginalPrice: item.OriginalPrice}

	switch {
	case item.DiscountedPrice > 0:
		r.UnitPrice = item.DiscountedPrice
		r.DiscountPercent = deriveDiscount(item.OriginalPrice, r.UnitPrice)

	case item.FinalPrice > 0:
		r.UnitPrice = item.FinalPrice
		r.DiscountPercent = deriveDiscount(item.OriginalPrice, r.UnitPrice)

	case item.SizeAdjustedPrice > 0:
		// The size-adjusted price replaces the base price; a leftover
		// discount percent still applies on top of it.
		r.OriginalPrice = item.SizeAdjustedPrice
		r.UnitPrice = applyDiscount(item.SizeAdjustedPrice, item.DiscountPercent)
		if item.DiscountPercent > 0 {
			r.DiscountPercent = item.DiscountPercent
		}

	case sizeMultiplier(item) > 0:
		r.OriginalPrice = item.OriginalPrice * sizeMultiplier(item)
		r.UnitPrice = applyDiscount(r.OriginalPrice, item.DiscountPercent)
		if item.DiscountPercent > 0 {
			r.DiscountPercent = item.DiscountPercent
		}

	case item.DiscountPercent > 0 && item.OriginalPrice > 0:
		r.UnitPrice = applyDiscount(item.OriginalPrice, item.DiscountPercent)
		r.DiscountPercent = item.DiscountPercent

	case item.OriginalPrice > 0:
		r.UnitPrice = item.OriginalPrice

	case item.ItemTotal > 0 && item.Quantity > 0:
		r.UnitPrice = item.ItemTotal / float64(item.Quantity)
		r.OriginalPrice = r.UnitPrice
		r.Warnings = append(r.Warnings, fmt.Sprintf("item %s: no usable price field, derived unit price from item total", item.ID))

	default:
		r.Warnings = append(r.Warnings, fmt.Sprintf("item %s: no usable price field, refunding 0 for this line", item.ID))
	}

	return r
}

func resolveBundle(item models.OrderItem) ResolvedPrice {
	r := ResolvedPrice{UnitPrice: item.BundlePrice}

	r.OriginalPrice = item.BundleOriginalPrice
	if r.OriginalPrice <= 0 {
		r.OriginalPrice = item.BundlePrice
	}
	if r.OriginalPrice > r.UnitPrice && r.UnitPrice > 0 {
		r.DiscountPercent = deriveDiscount(r.OriginalPrice, r.UnitPrice)
	}

	if r.UnitPrice <= 0 {
		if item.ItemTotal > 0 && item.Quantity > 0 {
			r.UnitPrice = item.ItemTotal / float64(item.Quantity)
			r.OriginalPrice = r.UnitPrice
			r.Warnings = append(r.Warnings, fmt.Sprintf("bundle item %s: no bundle price, derived unit price from item total", item.ID))
		} else {
			r.Warnings = append(r.Warnings, fmt.Sprintf("bundle item %s: no usable price field, refunding 0 for this line", item.ID))
		}
	}

	return r
}

func sizeMultiplier(item models.OrderItem) float64 {
	if item.Size == "" || len(item.SizePricing) == 0 {
		return 0
	}
	return item.SizePricing[item.Size]
}

func applyDiscount(price, percent float64) float64 {
	if percent <= 0 {
		return price
	}
	return price * (1 - percent/100)
}

func deriveDiscount(original, unit float64) float64 {
	if original <= unit || original <= 0 {
		return 0
	}
	return round2((original - unit) / original * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
