package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/velora/internal/middleware"
	"github.com/example/velora/internal/services"
)

// CancellationHandler exposes the customer-facing cancellation endpoints.
type CancellationHandler struct {
	cancellations *services.CancellationService
}

// NewCancellationHandler constructs CancellationHandler.
func NewCancellationHandler(cancellations *services.CancellationService) *CancellationHandler {
	return &CancellationHandler{cancellations: cancellations}
}

// Preview quotes the refund for cancelling an order, or a subset of its lines
// passed as a comma-separated items query param, without creating a request.
func (h *CancellationHandler) Preview(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	itemIDs, err := parseItemIDs(c.Query("items"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id in items")
	}

	quote, err := h.cancellations.Preview(c.UserContext(), userID, orderID, itemIDs)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    quote,
	})
}

type submitCancellationRequest struct {
	Type             string   `json:"type"`
	ItemIDs          []string `json:"item_ids"`
	Reason           string   `json:"reason"`
	AdditionalReason string   `json:"additional_reason"`
}

// Submit creates a cancellation request for one of the caller's orders.
func (h *CancellationHandler) Submit(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req submitCancellationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	itemIDs := make([]uuid.UUID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
		}
		itemIDs = append(itemIDs, id)
	}

	request, err := h.cancellations.Submit(c.UserContext(), userID, services.SubmitInput{
		OrderID:          orderID,
		Type:             req.Type,
		ItemIDs:          itemIDs,
		Reason:           req.Reason,
		AdditionalReason: req.AdditionalReason,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    request,
	})
}

// ListMine returns the caller's cancellation requests, newest first.
func (h *CancellationHandler) ListMine(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	requests, err := h.cancellations.ListForUser(c.UserContext(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    requests,
	})
}

// GetMine returns one of the caller's requests together with its current
// quote. A pending request is quoted live; a decided one returns the frozen
// snapshot.
func (h *CancellationHandler) GetMine(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}

	request, err := h.cancellations.GetForUser(c.UserContext(), userID, requestID)
	if err != nil {
		return mapServiceError(err)
	}

	quote, err := h.cancellations.QuoteFor(c.UserContext(), request)
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

func parseItemIDs(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
