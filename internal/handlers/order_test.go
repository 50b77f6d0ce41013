package handlers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/example/velora/internal/models"
)

func fixtureProduct() models.Product {
	product := models.Product{
		Name:      "Aurora Lamp",
		BasePrice: 200,
		SizePricing: map[string]float64{
			"small": 150,
			"large": 260,
		},
	}
	product.ID = uuid.New()
	return product
}

func TestProductLine(t *testing.T) {
	t.Run("base price without size or discount", func(t *testing.T) {
		item := productLine(fixtureProduct(), "", 2)

		assert.Equal(t, 200.0, item.OriginalPrice)
		assert.Equal(t, 200.0, item.FinalPrice)
		assert.Equal(t, 400.0, item.ItemTotal)
		assert.Zero(t, item.SizeAdjustedPrice)
	})

	t.Run("size resolves to an absolute price at checkout", func(t *testing.T) {
		item := productLine(fixtureProduct(), "large", 1)

		assert.Equal(t, 260.0, item.SizeAdjustedPrice)
		assert.Equal(t, 260.0, item.FinalPrice)
		// The catalog's absolute size map stays on the product; order lines
		// reserve that column for legacy multiplier data.
		assert.Nil(t, item.SizePricing)
	})

	t.Run("unknown size falls back to base price", func(t *testing.T) {
		item := productLine(fixtureProduct(), "xxl", 1)

		assert.Zero(t, item.SizeAdjustedPrice)
		assert.Equal(t, 200.0, item.FinalPrice)
	})

	t.Run("discounted price wins over size price", func(t *testing.T) {
		product := fixtureProduct()
		product.DiscountedPrice = 180
		item := productLine(product, "large", 1)

		assert.Equal(t, 260.0, item.SizeAdjustedPrice)
		assert.Equal(t, 180.0, item.FinalPrice)
		assert.Equal(t, 180.0, item.ItemTotal)
	})

	t.Run("percent discount applies to the size price", func(t *testing.T) {
		product := fixtureProduct()
		product.DiscountPercent = 10
		item := productLine(product, "small", 2)

		assert.Equal(t, 135.0, item.FinalPrice) // 150 - 10%
		assert.Equal(t, 270.0, item.ItemTotal)
	})
}
