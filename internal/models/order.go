package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order line item types.
const (
	ItemTypeProduct = "product"
	ItemTypeBundle  = "bundle"
)

// Order line item statuses.
const (
	ItemStatusActive    = "active"
	ItemStatusCancelled = "cancelled"
)

// Order is the aggregate a cancellation request is raised against.
//
// Subtotal and TotalAmount come from the checkout that placed the order and
// are best-effort: legacy rows may violate total = sum(lines) + delivery, so
// refund math never assumes the invariant holds (it falls back instead).
type Order struct {
	BaseModel
	UserID                uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User                  *User       `json:"user,omitempty"`
	OrderNumber           string      `gorm:"uniqueIndex" json:"order_number"`
	Status                string      `json:"status"`
	PlacedAt              time.Time   `json:"placed_at"`
	Subtotal              float64     `json:"subtotal"`
	DeliveryCharge        float64     `json:"delivery_charge"`
	TotalAmount           float64     `json:"total_amount"`
	Currency              string      `json:"currency"`
	PaymentIntentID       string      `json:"payment_intent_id"`
	EstimatedDeliveryDate *time.Time  `json:"estimated_delivery_date"`
	ActualDeliveryDate    *time.Time  `json:"actual_delivery_date"`
	Items                 []OrderItem `json:"items,omitempty"`
}

// OrderItem is one purchased line. The price columns are copied from the
// catalog at placement time and can conflict with each other; the refund
// price resolver picks the authoritative one via an ordered precedence chain.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ItemType    string     `gorm:"default:product" json:"item_type"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	BundleID    *uuid.UUID `gorm:"type:uuid" json:"bundle_id"`
	ProductName string     `json:"product_name"`
	Size        string     `json:"size"`
	Quantity    int        `json:"quantity"`
	Status      string     `gorm:"default:active" json:"status"`

	// Price sources, in no particular order of trust.
	OriginalPrice       float64            `json:"original_price"`
	DiscountedPrice     float64            `json:"discounted_price"`
	FinalPrice          float64            `json:"final_price"`
	SizeAdjustedPrice   float64            `json:"size_adjusted_price"`
	DiscountPercent     float64            `json:"discount_percent"`
	// SizePricing maps a size label to a multiplier on OriginalPrice. Only
	// imported legacy lines carry it; checkout writes the resolved absolute
	// price into SizeAdjustedPrice instead. Not the same convention as
	// Product.SizePricing, which holds absolute prices.
	SizePricing map[string]float64 `gorm:"serializer:json" json:"size_pricing,omitempty"`
	BundlePrice         float64            `json:"bundle_price"`
	BundleOriginalPrice float64            `json:"bundle_original_price"`
	ItemTotal           float64            `json:"item_total"`
}

// ActiveItemCount returns how many lines have not been cancelled yet.
func (o *Order) ActiveItemCount() int {
	count := 0
	for _, item := range o.Items {
		if item.Status == ItemStatusActive {
			count++
		}
	}
	return count
}

// ItemByID finds a line by its ID.
func (o *Order) ItemByID(id uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}
