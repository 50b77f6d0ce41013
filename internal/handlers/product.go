package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/velora/internal/models"
	"github.com/example/velora/internal/services"
	"github.com/example/velora/internal/utils"
)

// ProductHandler serves the storefront catalog.
type ProductHandler struct {
	db      *gorm.DB
	bundles *services.BundleCache
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB, bundles *services.BundleCache) *ProductHandler {
	return &ProductHandler{db: db, bundles: bundles}
}

// ListProducts returns active products with pagination.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	query := h.db.Model(&models.Product{}).Where("is_active = ?", true)
	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Limit(pagination.Limit).Offset(pagination.Offset).Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

// GetProduct returns one product by ID or slug.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	param := c.Params("id")

	var product models.Product
	query := h.db
	if id, err := uuid.Parse(param); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("slug = ?", param)
	}
	if err := query.First(&product).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    product,
	})
}

// ListBundles returns active bundles with their items.
func (h *ProductHandler) ListBundles(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Bundle{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
		return err
	}

	var bundles []models.Bundle
	if err := h.db.Preload("Items").Where("is_active = ?", true).
		Order("created_at DESC").Limit(pagination.Limit).Offset(pagination.Offset).
		Find(&bundles).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bundles,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

// GetBundle returns one bundle by ID, served through the cache.
func (h *ProductHandler) GetBundle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid bundle id")
	}

	bundle, err := h.bundles.GetBundle(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "bundle not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bundle,
	})
}
