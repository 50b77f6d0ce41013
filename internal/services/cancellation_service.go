package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/velora/internal/models"
	"github.com/example/velora/internal/refund"
	"github.com/example/velora/internal/repository"
)

// ValidationError is a synchronous reject of bad cancellation input: missing
// order, bad item selection, already-decided request. It maps to HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RefundExecutor executes an approved refund with an external payment
// provider. Fire-and-forget from the state machine's perspective.
type RefundExecutor interface {
	ExecuteRefund(ctx context.Context, order *models.Order, amount, percentage float64) error
}

// CustomerNotifier informs the customer about a decided request.
type CustomerNotifier interface {
	NotifyDecision(req *models.CancellationRequest, order *models.Order, user *models.User) error
}

// AdminNotifier pushes cancellation events to the staff channel.
type AdminNotifier interface {
	NotifyCancellationRequested(req *models.CancellationRequest, order *models.Order) error
	NotifyCancellationDecided(req *models.CancellationRequest, order *models.Order) error
}

// SubmitInput is a customer's cancellation ask.
type SubmitInput struct {
	OrderID          uuid.UUID
	Type             string
	ItemIDs          []uuid.UUID
	Reason           string
	AdditionalReason string
}

// DecisionInput is an admin's ruling on a pending request.
type DecisionInput struct {
	Approve            bool
	OverridePercentage *float64
	Notes              string
	ExpectedVersion    int
}

// CancellationService is the cancellation-request state machine. The refund
// math itself lives in the pure refund package; this service owns the
// mutable part: submission, the live-vs-frozen authority switch, and the
// at-most-once admin decision.
type CancellationService struct {
	store    repository.CancellationStore
	executor RefundExecutor
	customer CustomerNotifier
	admin    AdminNotifier
	policy   refund.Policy

	// Now is the injected clock; every engine call goes through it so the
	// time-decay rules stay deterministic under test.
	Now func() time.Time
}

// NewCancellationService constructs a CancellationService.
func NewCancellationService(store repository.CancellationStore, executor RefundExecutor, customer CustomerNotifier, admin AdminNotifier, policy refund.Policy) *CancellationService {
	return &CancellationService{
		store:    store,
		executor: executor,
		customer: customer,
		admin:    admin,
		policy:   policy,
		Now:      time.Now,
	}
}

// Preview computes a live quote for cancelling an order (or some of its
// lines) without creating a request. The order must belong to the user.
func (s *CancellationService) Preview(ctx context.Context, userID, orderID uuid.UUID, itemIDs []uuid.UUID) (*refund.Quote, error) {
	order, err := s.loadOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.validateSelection(order, itemIDs); err != nil {
		return nil, err
	}

	customer, err := s.customerInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	quote := refund.BuildQuote(order, itemIDs, s.Now(), nil, customer, s.policy)
	return &quote, nil
}

// Submit creates a pending cancellation request with its pricing snapshot. A
// partial selection that covers every remaining active line is persisted as a
// full-order request.
func (s *CancellationService) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*models.CancellationRequest, error) {
	if input.Reason == "" {
		return nil, validationErrorf("cancellation reason is required")
	}
	if input.Type != models.CancellationFullOrder && input.Type != models.CancellationPartialItems {
		return nil, validationErrorf("unknown cancellation type %q", input.Type)
	}
	if input.Type == models.CancellationPartialItems && len(input.ItemIDs) == 0 {
		return nil, validationErrorf("partial cancellation requires at least one item")
	}
	if input.Type == models.CancellationFullOrder {
		input.ItemIDs = nil
	}

	order, err := s.loadOwnedOrder(ctx, userID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, validationErrorf("order %s is already cancelled", order.OrderNumber)
	}
	if order.ActiveItemCount() == 0 {
		return nil, validationErrorf("order %s has no active items left", order.OrderNumber)
	}
	if err := s.validateSelection(order, input.ItemIDs); err != nil {
		return nil, err
	}

	if pending, err := s.store.HasPendingRequest(ctx, order.ID); err != nil {
		return nil, err
	} else if pending {
		return nil, validationErrorf("order %s already has a pending cancellation request", order.OrderNumber)
	}

	customer, err := s.customerInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	quote := refund.BuildQuote(order, input.ItemIDs, s.Now(), nil, customer, s.policy)
	for _, warning := range quote.Warnings {
		log.Printf("[Cancellation] price fallback on order %s: %s", order.OrderNumber, warning)
	}

	req := &models.CancellationRequest{
		OrderID:           order.ID,
		UserID:            userID,
		Type:              quote.Type,
		Reason:            input.Reason,
		AdditionalReason:  input.AdditionalReason,
		Status:            models.CancellationStatusPending,
		Version:           1,
		RefundPercentage:  quote.Percentage,
		RefundAmount:      quote.RefundAmount,
		ItemsTotal:        quote.ItemsTotal,
		DeliveryComponent: quote.DeliveryComponent,
		ComputedAt:        quote.ComputedAt,
	}
	// A reclassified request is stored as full-order, which carries no item
	// selection.
	if quote.Type == models.CancellationPartialItems {
		for _, id := range input.ItemIDs {
			req.ItemIDs = append(req.ItemIDs, id.String())
		}
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	if s.admin != nil {
		if err := s.admin.NotifyCancellationRequested(req, order); err != nil {
			log.Printf("[Cancellation] admin notification failed for request %s: %v", req.ID, err)
		}
	}

	return req, nil
}

// ListForUser returns every cancellation request the user has raised, with
// pending rows requoted against the current clock.
func (s *CancellationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CancellationRequest, error) {
	requests, err := s.store.ListRequestsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.RefreshPendingQuotes(ctx, requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// RefreshPendingQuotes overwrites the quoted figures of every pending request
// in place with a live recomputation. The stored submission-time snapshot is
// stale the moment the clock moves, so no read path may serialize it while
// the request is still pending. Decided rows keep their frozen snapshot.
func (s *CancellationService) RefreshPendingQuotes(ctx context.Context, requests []models.CancellationRequest) error {
	for i := range requests {
		req := &requests[i]
		if req.IsDecided() {
			continue
		}
		quote, err := s.QuoteFor(ctx, req)
		if err != nil {
			return err
		}
		req.RefundPercentage = quote.Percentage
		req.RefundAmount = quote.RefundAmount
		req.ItemsTotal = quote.ItemsTotal
		req.DeliveryComponent = quote.DeliveryComponent
		req.ComputedAt = quote.ComputedAt
	}
	return nil
}

// GetForUser loads one request and verifies ownership.
func (s *CancellationService) GetForUser(ctx context.Context, userID, requestID uuid.UUID) (*models.CancellationRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return req, nil
}

// QuoteFor returns the authoritative refund figures for a request: a live
// recomputation while the request is pending (the clock has moved since
// submission), the frozen snapshot once it is decided.
func (s *CancellationService) QuoteFor(ctx context.Context, req *models.CancellationRequest) (*refund.Quote, error) {
	if req.IsDecided() {
		return s.frozenQuote(req), nil
	}

	order := req.Order
	if order == nil {
		var err error
		order, err = s.store.GetOrder(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
	}

	customer, err := s.customerInfo(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	quote := refund.BuildQuote(order, req.CancelledItemIDs(), s.Now(), nil, customer, s.policy)
	return &quote, nil
}

// Decide applies an admin decision with at-most-once semantics. A stale
// expected version, or a second decision racing the first, fails with
// repository.ErrConcurrencyConflict and changes nothing.
func (s *CancellationService) Decide(ctx context.Context, requestID uuid.UUID, input DecisionInput) (*models.CancellationRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.IsDecided() {
		return nil, repository.ErrConcurrencyConflict
	}

	order := req.Order
	if order == nil {
		order, err = s.store.GetOrder(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
	}

	expectedVersion := input.ExpectedVersion
	if expectedVersion == 0 {
		expectedVersion = req.Version
	}

	decidedAt := s.Now()
	req.DecidedAt = &decidedAt
	req.AdminNotes = input.Notes

	if !input.Approve {
		// A rejection freezes nothing financially relevant; the submission
		// snapshot stays as a historical record.
		req.Status = models.CancellationStatusRejected
		if err := s.store.ApplyDecision(ctx, req, expectedVersion); err != nil {
			return nil, err
		}
		s.notifyDecision(req, order)
		return req, nil
	}

	// One final live computation at decision time becomes the frozen
	// snapshot; an admin override replaces the time-based base percentage
	// but still takes penalties, bonuses and clamping.
	customer, err := s.customerInfo(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	quote := refund.BuildQuote(order, req.CancelledItemIDs(), decidedAt, input.OverridePercentage, customer, s.policy)

	req.Status = models.CancellationStatusApproved
	req.Type = quote.Type
	// Other lines may have been cancelled since submission, reclassifying
	// the selection to a full-order cancellation; a full-order row carries
	// no item selection.
	if req.Type == models.CancellationFullOrder {
		req.ItemIDs = nil
	}
	req.OverridePercentage = input.OverridePercentage
	req.RefundPercentage = quote.Percentage
	req.RefundAmount = quote.RefundAmount
	req.ItemsTotal = quote.ItemsTotal
	req.DeliveryComponent = quote.DeliveryComponent
	req.ComputedAt = quote.ComputedAt

	if err := s.store.ApplyDecision(ctx, req, expectedVersion); err != nil {
		return nil, err
	}

	if err := s.store.CancelOrderItems(ctx, order.ID, req.CancelledItemIDs()); err != nil {
		log.Printf("[Cancellation] failed to cancel order items for request %s: %v", req.ID, err)
	}
	if req.Type == models.CancellationFullOrder {
		if err := s.store.SetOrderStatus(ctx, order.ID, models.OrderStatusCancelled); err != nil {
			log.Printf("[Cancellation] failed to update order status for request %s: %v", req.ID, err)
		}
	}

	s.notifyDecision(req, order)

	// Refund execution runs detached from the admin's HTTP request, the same
	// way order placement dispatches to the payment provider.
	go func(id uuid.UUID) {
		if err := s.DispatchRefund(context.Background(), id); err != nil {
			log.Printf("[Cancellation] refund dispatch failed for request %s: %v", id, err)
		}
	}(req.ID)

	return req, nil
}

// DispatchRefund sends the approved refund instruction to the payment
// executor and marks the request processed once the executor confirms.
func (s *CancellationService) DispatchRefund(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.CancellationStatusApproved {
		return validationErrorf("request %s is not approved", requestID)
	}

	order := req.Order
	if order == nil {
		order, err = s.store.GetOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
	}

	if s.executor != nil {
		if err := s.executor.ExecuteRefund(ctx, order, req.RefundAmount, req.RefundPercentage); err != nil {
			return err
		}
	}

	return s.store.MarkProcessed(ctx, req.ID, s.Now())
}

func (s *CancellationService) loadOwnedOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, validationErrorf("order %s does not belong to this user", orderID)
	}
	return order, nil
}

func (s *CancellationService) validateSelection(order *models.Order, itemIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			return validationErrorf("item %s selected twice", id)
		}
		seen[id] = true

		item := order.ItemByID(id)
		if item == nil {
			return validationErrorf("item %s is not part of order %s", id, order.OrderNumber)
		}
		if item.Status != models.ItemStatusActive {
			return validationErrorf("item %s is already cancelled", id)
		}
		if item.Quantity <= 0 {
			return validationErrorf("item %s has invalid quantity %d", id, item.Quantity)
		}
	}
	return nil
}

func (s *CancellationService) customerInfo(ctx context.Context, userID uuid.UUID) (*refund.CustomerInfo, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountOrdersForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &refund.CustomerInfo{MembershipTier: user.MembershipTier, OrderCount: int(count)}, nil
}

// frozenQuote rebuilds a Quote view from the stored snapshot without any
// recomputation. Approved snapshots already reflect any admin override.
func (s *CancellationService) frozenQuote(req *models.CancellationRequest) *refund.Quote {
	return &refund.Quote{
		Type:              req.Type,
		Percentage:        req.RefundPercentage,
		DisplayPercentage: int(math.Round(req.RefundPercentage)),
		RefundAmount:      req.RefundAmount,
		ItemsTotal:        req.ItemsTotal,
		DeliveryComponent: req.DeliveryComponent,
		ComputedAt:        req.ComputedAt,
	}
}

func (s *CancellationService) notifyDecision(req *models.CancellationRequest, order *models.Order) {
	if s.admin != nil {
		if err := s.admin.NotifyCancellationDecided(req, order); err != nil {
			log.Printf("[Cancellation] admin notification failed for request %s: %v", req.ID, err)
		}
	}
	if s.customer == nil {
		return
	}
	user := req.User
	if user == nil {
		loaded, err := s.store.GetUser(context.Background(), req.UserID)
		if err != nil {
			log.Printf("[Cancellation] could not load user for request %s: %v", req.ID, err)
			return
		}
		user = loaded
	}
	if err := s.customer.NotifyDecision(req, order, user); err != nil {
		log.Printf("[Cancellation] customer notification failed for request %s: %v", req.ID, err)
	}
}
