package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/velora/internal/models"
	"github.com/example/velora/internal/services"
	"github.com/example/velora/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db            *gorm.DB
	cancellations *services.CancellationService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, cancellations *services.CancellationService) *AdminHandler {
	return &AdminHandler{db: db, cancellations: cancellations}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}

	var orderCounts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&orderCounts).Error; err != nil {
		return err
	}
	ordersByStatus := make(map[string]int64)
	for _, sc := range orderCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	var cancellationCounts []statusCount
	if err := h.db.Model(&models.CancellationRequest{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&cancellationCounts).Error; err != nil {
		return err
	}
	cancellationsByStatus := make(map[string]int64)
	for _, sc := range cancellationCounts {
		cancellationsByStatus[sc.Status] = sc.Count
	}

	var totalRevenue float64
	if err := h.db.Model(&models.Order{}).
		Where("status != ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	// Refunds paid out: approved snapshots are frozen, so summing the stored
	// amount is exact.
	var refundedTotal float64
	if err := h.db.Model(&models.CancellationRequest{}).
		Where("status IN ?", []string{models.CancellationStatusApproved, models.CancellationStatusProcessed}).
		Select("COALESCE(SUM(refund_amount), 0)").
		Scan(&refundedTotal).Error; err != nil {
		return err
	}

	var pendingCancellations int64
	if err := h.db.Model(&models.CancellationRequest{}).
		Where("status = ?", models.CancellationStatusPending).
		Count(&pendingCancellations).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":             totalUsers,
			"total_orders":            totalOrders,
			"total_revenue":           totalRevenue,
			"refunded_total":          refundedTotal,
			"orders_by_status":        ordersByStatus,
			"cancellations_by_status": cancellationsByStatus,
			"pending_cancellations":   pendingCancellations,
		},
	})
}

// ListAllOrders returns all orders with pagination, filtering, and user info.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if search := c.Query("search"); search != "" {
		query = query.Where("order_number ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("User").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// ListCancellations returns cancellation requests for review, with status
// filtering and order-number search.
func (h *AdminHandler) ListCancellations(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.CancellationRequest{})

	if status := c.Query("status"); status != "" {
		query = query.Where("cancellation_requests.status = ?", status)
	}

	if search := c.Query("search"); search != "" {
		query = query.
			Joins("JOIN orders ON orders.id = cancellation_requests.order_id").
			Where("orders.order_number ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var requests []models.CancellationRequest
	if err := query.Preload("Order").Preload("Order.Items").Preload("User").
		Order("cancellation_requests.created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&requests).Error; err != nil {
		return err
	}

	// Pending rows must show the current quote, not the submission snapshot.
	if err := h.cancellations.RefreshPendingQuotes(c.UserContext(), requests); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    requests,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetCancellation returns one request with its full order context and the
// quote an approval would pay out right now.
func (h *AdminHandler) GetCancellation(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}

	var request models.CancellationRequest
	if err := h.db.Preload("Order").Preload("Order.Items").Preload("User").
		First(&request, "id = ?", requestID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "cancellation request not found")
	}

	quote, err := h.cancellations.QuoteFor(c.UserContext(), &request)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"request": request,
			"quote":   quote,
		},
	})
}

type decisionRequest struct {
	Action             string   `json:"action"`
	OverridePercentage *float64 `json:"refund_percentage_override"`
	Notes              string   `json:"notes"`
	ExpectedVersion    int      `json:"expected_version"`
}

// Decide approves or rejects a pending request.
func (h *AdminHandler) Decide(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}

	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Action != "approve" && req.Action != "reject" {
		return fiber.NewError(fiber.StatusBadRequest, "action must be approve or reject")
	}

	request, err := h.cancellations.Decide(c.UserContext(), requestID, services.DecisionInput{
		Approve:            req.Action == "approve",
		OverridePercentage: req.OverridePercentage,
		Notes:              req.Notes,
		ExpectedVersion:    req.ExpectedVersion,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    request,
	})
}
