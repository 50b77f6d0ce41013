package handlers

import (
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/velora/internal/middleware"
	"github.com/example/velora/internal/models"
	"github.com/example/velora/internal/services"
	"github.com/example/velora/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db      *gorm.DB
	bundles *services.BundleCache
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, bundles *services.BundleCache) *OrderHandler {
	return &OrderHandler{db: db, bundles: bundles}
}

type orderLineRequest struct {
	ProductID string `json:"product_id"`
	BundleID  string `json:"bundle_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Lines           []orderLineRequest `json:"lines"`
	DeliveryCharge  float64            `json:"delivery_charge"`
	Currency        string             `json:"currency"`
	PaymentIntentID string             `json:"payment_intent_id"`
}

// CreateOrder allows authenticated users to place an order. Catalog pricing
// is copied onto each order line so later refund math never depends on the
// catalog row still existing or still carrying the same price.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Lines) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order must contain at least one line")
	}

	estimated := time.Now().Add(5 * 24 * time.Hour)
	order := models.Order{
		UserID:                userID,
		Status:                models.OrderStatusPending,
		PlacedAt:              time.Now(),
		DeliveryCharge:        req.DeliveryCharge,
		Currency:              req.Currency,
		PaymentIntentID:       req.PaymentIntentID,
		EstimatedDeliveryDate: &estimated,
	}
	if order.Currency == "" {
		order.Currency = "USD"
	}

	var subtotal float64
	for _, line := range req.Lines {
		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		item, err := h.buildLine(c, line, quantity)
		if err != nil {
			return err
		}

		subtotal += item.ItemTotal
		order.Items = append(order.Items, *item)
	}

	order.Subtotal = round2(subtotal)
	order.TotalAmount = round2(subtotal + order.DeliveryCharge)
	order.OrderNumber = h.generateOrderNumber()

	if err := h.db.Create(&order).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}

func (h *OrderHandler) buildLine(c *fiber.Ctx, line orderLineRequest, quantity int) (*models.OrderItem, error) {
	if line.BundleID != "" {
		bundleID, err := uuid.Parse(line.BundleID)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid bundle id")
		}

		bundle, err := h.bundles.GetBundle(c.UserContext(), bundleID)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "bundle not found")
		}

		return &models.OrderItem{
			ItemType:            models.ItemTypeBundle,
			BundleID:            &bundle.ID,
			ProductName:         bundle.Name,
			Quantity:            quantity,
			Status:              models.ItemStatusActive,
			BundlePrice:         bundle.Price,
			BundleOriginalPrice: bundle.OriginalPrice,
			ItemTotal:           round2(bundle.Price * float64(quantity)),
		}, nil
	}

	productID, err := uuid.Parse(line.ProductID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ? AND is_active = ?", productID, true).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "product not found")
	}

	return productLine(product, line.Size, quantity), nil
}

// productLine prices one product line at checkout. The catalog's per-size
// absolute price is resolved here into SizeAdjustedPrice; the catalog map is
// not copied onto the line, because OrderItem.SizePricing holds size
// multipliers (legacy import convention), not absolute prices.
func productLine(product models.Product, size string, quantity int) *models.OrderItem {
	item := &models.OrderItem{
		ItemType:        models.ItemTypeProduct,
		ProductID:       &product.ID,
		ProductName:     product.Name,
		Size:            size,
		Quantity:        quantity,
		Status:          models.ItemStatusActive,
		OriginalPrice:   product.BasePrice,
		DiscountedPrice: product.DiscountedPrice,
		DiscountPercent: product.DiscountPercent,
	}

	unit := product.BasePrice
	if size != "" {
		if sizePrice, ok := product.SizePricing[size]; ok && sizePrice > 0 {
			item.SizeAdjustedPrice = sizePrice
			unit = sizePrice
		}
	}
	if product.DiscountedPrice > 0 {
		unit = product.DiscountedPrice
	} else if product.DiscountPercent > 0 {
		unit = round2(unit * (1 - product.DiscountPercent/100))
	}

	item.FinalPrice = unit
	item.ItemTotal = round2(unit * float64(quantity))
	return item
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := h.db.Preload("Items").Where("user_id = ?", userID).
		Order("placed_at DESC").Limit(pagination.Limit).Offset(pagination.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

// GetOrder returns one of the authenticated user's orders with its lines.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.Preload("Items").First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}

func (h *OrderHandler) generateOrderNumber() string {
	return fmt.Sprintf("#%d", time.Now().UnixNano()%1000000000)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
