package models

import "github.com/google/uuid"

// Product is a storefront catalog entry. Price fields mirror what gets copied
// onto order lines at placement time; several of them may disagree with each
// other in legacy rows, which is why order lines go through the refund price
// resolver instead of trusting any single column.
type Product struct {
	BaseModel
	Slug             string             `gorm:"uniqueIndex" json:"slug"`
	Name             string             `json:"name"`
	ShortDescription string             `json:"short_description"`
	BasePrice        float64            `json:"base_price"`
	DiscountedPrice  float64            `json:"discounted_price"`
	DiscountPercent  float64            `json:"discount_percent"`
	Currency         string             `json:"currency"`
	HeroImage        string             `json:"hero_image"`
	IsActive         bool               `gorm:"default:true" json:"is_active"`
	// SizePricing maps a size label to its absolute unit price. Checkout
	// resolves the chosen size into OrderItem.SizeAdjustedPrice; the map is
	// never copied onto order lines.
	SizePricing map[string]float64 `gorm:"serializer:json" json:"size_pricing,omitempty"`
}

// Bundle groups several products under a single bundle price.
type Bundle struct {
	BaseModel
	Slug          string       `gorm:"uniqueIndex" json:"slug"`
	Name          string       `json:"name"`
	Price         float64      `json:"price"`
	OriginalPrice float64      `json:"original_price"`
	Currency      string       `json:"currency"`
	IsActive      bool         `gorm:"default:true" json:"is_active"`
	Items         []BundleItem `json:"items,omitempty"`
}

// BundleItem links one product into a bundle.
type BundleItem struct {
	BaseModel
	BundleID  uuid.UUID `gorm:"type:uuid;index" json:"bundle_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Quantity  int       `json:"quantity"`
}
