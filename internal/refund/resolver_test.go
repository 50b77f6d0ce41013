package refund

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/example/velora/internal/models"
)

func productItem(mutate func(*models.OrderItem)) models.OrderItem {
	item := models.OrderItem{
		ItemType: models.ItemTypeProduct,
		Quantity: 1,
		Status:   models.ItemStatusActive,
	}
	item.ID = uuid.New()
	if mutate != nil {
		mutate(&item)
	}
	return item
}

func TestResolvePrice_ProductPrecedence(t *testing.T) {
	t.Run("stored discounted price wins over everything", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 100
			i.DiscountedPrice = 80
			i.FinalPrice = 70
			i.DiscountPercent = 50
		}))
		assert.Equal(t, 80.0, r.UnitPrice)
		assert.Equal(t, 100.0, r.OriginalPrice)
		assert.Equal(t, 20.0, r.DiscountPercent)
		assert.Equal(t, 80.0, r.LineTotal)
	})

	t.Run("final price is second", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 200
			i.FinalPrice = 150
		}))
		assert.Equal(t, 150.0, r.UnitPrice)
		assert.Equal(t, 25.0, r.DiscountPercent)
	})

	t.Run("no discount derived when original does not exceed unit", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 80
			i.DiscountedPrice = 80
		}))
		assert.Equal(t, 80.0, r.UnitPrice)
		assert.Zero(t, r.DiscountPercent)
	})

	t.Run("size adjusted price becomes the new base", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 100
			i.SizeAdjustedPrice = 120
			i.DiscountPercent = 10
		}))
		assert.Equal(t, 120.0, r.OriginalPrice)
		assert.InDelta(t, 108.0, r.UnitPrice, 0.001)
		assert.Equal(t, 10.0, r.DiscountPercent)
	})

	t.Run("size pricing table multiplies the base price", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 100
			i.Size = "L"
			i.SizePricing = map[string]float64{"L": 1.5}
			i.DiscountPercent = 20
		}))
		assert.Equal(t, 150.0, r.OriginalPrice)
		assert.InDelta(t, 120.0, r.UnitPrice, 0.001)
	})

	t.Run("size pricing ignored for unknown size", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 100
			i.Size = "XL"
			i.SizePricing = map[string]float64{"L": 1.5}
		}))
		assert.Equal(t, 100.0, r.UnitPrice)
	})

	t.Run("discount percent applies to original price", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 200
			i.DiscountPercent = 25
		}))
		assert.InDelta(t, 150.0, r.UnitPrice, 0.001)
		assert.Equal(t, 25.0, r.DiscountPercent)
	})

	t.Run("falls back to original price", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.OriginalPrice = 75
		}))
		assert.Equal(t, 75.0, r.UnitPrice)
		assert.Empty(t, r.Warnings)
	})

	t.Run("falls back to item total divided by quantity", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.Quantity = 4
			i.ItemTotal = 100
		}))
		assert.Equal(t, 25.0, r.UnitPrice)
		assert.Equal(t, 100.0, r.LineTotal)
		assert.Len(t, r.Warnings, 1)
	})

	t.Run("no usable field resolves to zero with a warning", func(t *testing.T) {
		r := ResolvePrice(productItem(nil))
		assert.Zero(t, r.UnitPrice)
		assert.Zero(t, r.LineTotal)
		assert.Len(t, r.Warnings, 1)
	})
}

func TestResolvePrice_Bundle(t *testing.T) {
	t.Run("bundle price with original", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.ItemType = models.ItemTypeBundle
			i.BundlePrice = 250
			i.BundleOriginalPrice = 300
		}))
		assert.Equal(t, 250.0, r.UnitPrice)
		assert.Equal(t, 300.0, r.OriginalPrice)
		assert.InDelta(t, 16.67, r.DiscountPercent, 0.001)
	})

	t.Run("missing original falls back to bundle price", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.ItemType = models.ItemTypeBundle
			i.BundlePrice = 250
		}))
		assert.Equal(t, 250.0, r.OriginalPrice)
		assert.Zero(t, r.DiscountPercent)
	})

	t.Run("missing bundle price warns", func(t *testing.T) {
		r := ResolvePrice(productItem(func(i *models.OrderItem) {
			i.ItemType = models.ItemTypeBundle
		}))
		assert.Zero(t, r.UnitPrice)
		assert.Len(t, r.Warnings, 1)
	})
}

func TestResolvePrice_LineRounding(t *testing.T) {
	// Rounding happens once at the line, not per unit: per-unit rounding of
	// 10.375 would give 10.38 * 3 = 31.14.
	r := ResolvePrice(productItem(func(i *models.OrderItem) {
		i.OriginalPrice = 10.375
		i.Quantity = 3
	}))
	assert.Equal(t, 31.13, r.LineTotal)
}

func TestResolvePrice_NonPositiveQuantity(t *testing.T) {
	r := ResolvePrice(productItem(func(i *models.OrderItem) {
		i.OriginalPrice = 50
		i.Quantity = 0
	}))
	assert.Equal(t, 50.0, r.LineTotal)
	assert.Len(t, r.Warnings, 1)
}

func TestResolvePrice_Idempotent(t *testing.T) {
	item := productItem(func(i *models.OrderItem) {
		i.OriginalPrice = 100
		i.DiscountedPrice = 80
	})
	first := ResolvePrice(item)
	second := ResolvePrice(item)
	assert.Equal(t, first, second)
}
