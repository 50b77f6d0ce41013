package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/velora/internal/models"
	"github.com/example/velora/internal/refund"
	"github.com/example/velora/internal/repository"
	repoMocks "github.com/example/velora/internal/repository/mocks"
	svcMocks "github.com/example/velora/internal/services/mocks"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	store    *repoMocks.MockCancellationStore
	executor *svcMocks.MockRefundExecutor
	customer *svcMocks.MockCustomerNotifier
	admin    *svcMocks.MockAdminNotifier
	svc      *CancellationService
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		store:    new(repoMocks.MockCancellationStore),
		executor: new(svcMocks.MockRefundExecutor),
		customer: new(svcMocks.MockCustomerNotifier),
		admin:    new(svcMocks.MockAdminNotifier),
	}
	f.svc = NewCancellationService(f.store, f.executor, f.customer, f.admin, refund.DefaultPolicy())
	f.svc.Now = func() time.Time { return fixedNow }
	return f
}

func fixtureOrder(userID uuid.UUID) *models.Order {
	order := &models.Order{
		UserID:         userID,
		OrderNumber:    "#100200300",
		Status:         models.OrderStatusPaid,
		PlacedAt:       fixedNow.Add(-10 * time.Hour),
		Subtotal:       900,
		DeliveryCharge: 100,
		TotalAmount:    1000,
		Currency:       "USD",
	}
	order.ID = uuid.New()
	first := models.OrderItem{OrderID: order.ID, ItemType: models.ItemTypeProduct, Quantity: 1, Status: models.ItemStatusActive, OriginalPrice: 600}
	first.ID = uuid.New()
	second := models.OrderItem{OrderID: order.ID, ItemType: models.ItemTypeProduct, Quantity: 1, Status: models.ItemStatusActive, OriginalPrice: 300}
	second.ID = uuid.New()
	order.Items = []models.OrderItem{first, second}
	return order
}

func fixtureUser(id uuid.UUID) *models.User {
	user := &models.User{MembershipTier: models.TierStandard, Email: "customer@example.com"}
	user.ID = id
	return user
}

func (f *serviceFixture) expectCustomerLookup(userID uuid.UUID, orderCount int64) {
	f.store.On("GetUser", mock.Anything, userID).Return(fixtureUser(userID), nil)
	f.store.On("CountOrdersForUser", mock.Anything, userID).Return(orderCount, nil)
}

func TestSubmit_FullOrder(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)

	f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
	f.store.On("HasPendingRequest", mock.Anything, order.ID).Return(false, nil)
	f.expectCustomerLookup(userID, 1)
	f.store.On("CreateRequest", mock.Anything, mock.AnythingOfType("*models.CancellationRequest")).Return(nil).Once()
	f.admin.On("NotifyCancellationRequested", mock.Anything, order).Return(nil).Once()

	req, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
		OrderID: order.ID,
		Type:    models.CancellationFullOrder,
		Reason:  "changed my mind",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CancellationStatusPending, req.Status)
	assert.Equal(t, 1, req.Version)
	assert.Equal(t, models.CancellationFullOrder, req.Type)
	assert.Empty(t, req.ItemIDs)
	// Placed 10 hours ago, nothing delivered: 90% of (900 + 100).
	assert.Equal(t, 90.0, req.RefundPercentage)
	assert.Equal(t, 900.0, req.RefundAmount)
	assert.Equal(t, fixedNow, req.ComputedAt)
	f.store.AssertExpectations(t)
	f.admin.AssertExpectations(t)
}

func TestSubmit_PartialItems(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)

	f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
	f.store.On("HasPendingRequest", mock.Anything, order.ID).Return(false, nil)
	f.expectCustomerLookup(userID, 1)
	f.store.On("CreateRequest", mock.Anything, mock.Anything).Return(nil).Once()
	f.admin.On("NotifyCancellationRequested", mock.Anything, order).Return(nil).Once()

	req, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
		OrderID: order.ID,
		Type:    models.CancellationPartialItems,
		ItemIDs: []uuid.UUID{order.Items[0].ID},
		Reason:  "wrong size",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CancellationPartialItems, req.Type)
	assert.Equal(t, []string{order.Items[0].ID.String()}, []string(req.ItemIDs))
	// 540 item refund + 60 proportional delivery share.
	assert.Equal(t, 600.0, req.RefundAmount)
	assert.Equal(t, 60.0, req.DeliveryComponent)
}

func TestSubmit_ReclassifiesToFullOrder(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)

	f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
	f.store.On("HasPendingRequest", mock.Anything, order.ID).Return(false, nil)
	f.expectCustomerLookup(userID, 1)
	f.store.On("CreateRequest", mock.Anything, mock.Anything).Return(nil).Once()
	f.admin.On("NotifyCancellationRequested", mock.Anything, order).Return(nil).Once()

	req, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
		OrderID: order.ID,
		Type:    models.CancellationPartialItems,
		ItemIDs: []uuid.UUID{order.Items[0].ID, order.Items[1].ID},
		Reason:  "no longer needed",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CancellationFullOrder, req.Type)
	assert.Empty(t, req.ItemIDs, "a reclassified request carries no item selection")
	assert.Equal(t, 900.0, req.RefundAmount)
}

func TestSubmit_Validation(t *testing.T) {
	userID := uuid.New()

	t.Run("partial with no items", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
			OrderID: uuid.New(), Type: models.CancellationPartialItems, Reason: "x",
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("foreign order", func(t *testing.T) {
		f := newFixture()
		order := fixtureOrder(uuid.New())
		f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
		_, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
			OrderID: order.ID, Type: models.CancellationFullOrder, Reason: "x",
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown item id", func(t *testing.T) {
		f := newFixture()
		order := fixtureOrder(userID)
		f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
		_, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
			OrderID: order.ID, Type: models.CancellationPartialItems,
			ItemIDs: []uuid.UUID{uuid.New()}, Reason: "x",
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("already cancelled item", func(t *testing.T) {
		f := newFixture()
		order := fixtureOrder(userID)
		order.Items[0].Status = models.ItemStatusCancelled
		f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
		_, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
			OrderID: order.ID, Type: models.CancellationPartialItems,
			ItemIDs: []uuid.UUID{order.Items[0].ID}, Reason: "x",
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("duplicate pending request", func(t *testing.T) {
		f := newFixture()
		order := fixtureOrder(userID)
		f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
		f.store.On("HasPendingRequest", mock.Anything, order.ID).Return(true, nil)
		_, err := f.svc.Submit(context.TODO(), userID, SubmitInput{
			OrderID: order.ID, Type: models.CancellationFullOrder, Reason: "x",
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func pendingRequest(order *models.Order, userID uuid.UUID) *models.CancellationRequest {
	req := &models.CancellationRequest{
		OrderID:           order.ID,
		Order:             order,
		UserID:            userID,
		Type:              models.CancellationFullOrder,
		Reason:            "changed my mind",
		Status:            models.CancellationStatusPending,
		Version:           1,
		RefundPercentage:  90,
		RefundAmount:      900,
		ItemsTotal:        900,
		DeliveryComponent: 90,
		ComputedAt:        order.PlacedAt.Add(10 * time.Hour),
	}
	req.ID = uuid.New()
	return req
}

func TestQuoteFor_PendingRecomputesLive(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	req := pendingRequest(order, userID)
	f.expectCustomerLookup(userID, 1)

	// Five days after submission the order has aged out of the 24-hour
	// bracket; a pending request must track the live clock.
	f.svc.Now = func() time.Time { return fixedNow.Add(5 * 24 * time.Hour) }

	quote, err := f.svc.QuoteFor(context.TODO(), req)
	require.NoError(t, err)
	assert.Equal(t, 75.0, quote.Percentage)
	assert.Equal(t, 750.0, quote.RefundAmount)
}

func TestQuoteFor_DecidedReturnsFrozenSnapshot(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	req := pendingRequest(order, userID)
	req.Status = models.CancellationStatusApproved

	// No matter how far the clock advances, the snapshot is authoritative.
	for _, advance := range []time.Duration{0, 24 * time.Hour, 90 * 24 * time.Hour} {
		f.svc.Now = func() time.Time { return fixedNow.Add(advance) }
		quote, err := f.svc.QuoteFor(context.TODO(), req)
		require.NoError(t, err)
		assert.Equal(t, 90.0, quote.Percentage)
		assert.Equal(t, 900.0, quote.RefundAmount)
		assert.Equal(t, req.ComputedAt, quote.ComputedAt)
	}
	f.store.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestListForUser_PendingRowsRequotedLive(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	pending := pendingRequest(order, userID)
	decided := pendingRequest(order, userID)
	decided.Status = models.CancellationStatusApproved

	f.store.On("ListRequestsForUser", mock.Anything, userID).
		Return([]models.CancellationRequest{*pending, *decided}, nil)
	f.expectCustomerLookup(userID, 1)

	// Five days later the pending row has decayed out of the 24-hour
	// bracket; the list must not serialize the submission snapshot.
	f.svc.Now = func() time.Time { return fixedNow.Add(5 * 24 * time.Hour) }

	requests, err := f.svc.ListForUser(context.TODO(), userID)
	require.NoError(t, err)
	require.Len(t, requests, 2)

	assert.Equal(t, 75.0, requests[0].RefundPercentage)
	assert.Equal(t, 750.0, requests[0].RefundAmount)
	assert.Equal(t, fixedNow.Add(5*24*time.Hour), requests[0].ComputedAt)

	// The decided row keeps its frozen snapshot.
	assert.Equal(t, 90.0, requests[1].RefundPercentage)
	assert.Equal(t, 900.0, requests[1].RefundAmount)
}

func TestRefreshPendingQuotes(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	pending := pendingRequest(order, userID)
	f.expectCustomerLookup(userID, 1)

	f.svc.Now = func() time.Time { return fixedNow.Add(5 * 24 * time.Hour) }

	requests := []models.CancellationRequest{*pending}
	require.NoError(t, f.svc.RefreshPendingQuotes(context.TODO(), requests))
	assert.Equal(t, 75.0, requests[0].RefundPercentage)
	assert.Equal(t, 750.0, requests[0].RefundAmount)
}

func TestDecide_Approve(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	req := pendingRequest(order, userID)

	f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)
	f.expectCustomerLookup(userID, 1)
	f.store.On("ApplyDecision", mock.Anything, req, 1).Return(nil).Once()
	f.store.On("CancelOrderItems", mock.Anything, order.ID, mock.Anything).Return(nil).Once()
	f.store.On("SetOrderStatus", mock.Anything, order.ID, models.OrderStatusCancelled).Return(nil).Once()
	f.admin.On("NotifyCancellationDecided", req, order).Return(nil).Once()
	f.customer.On("NotifyDecision", req, order, mock.Anything).Return(nil).Once()
	// The detached refund dispatch may or may not run before the test ends.
	f.executor.On("ExecuteRefund", mock.Anything, order, req.RefundAmount, req.RefundPercentage).Return(nil).Maybe()
	f.store.On("MarkProcessed", mock.Anything, req.ID, mock.Anything).Return(nil).Maybe()

	decided, err := f.svc.Decide(context.TODO(), req.ID, DecisionInput{Approve: true, ExpectedVersion: 1, Notes: "ok"})

	require.NoError(t, err)
	assert.Equal(t, models.CancellationStatusApproved, decided.Status)
	assert.Equal(t, "ok", decided.AdminNotes)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, fixedNow, *decided.DecidedAt)
	// Re-frozen at decision time with the same clock: identical figures.
	assert.Equal(t, 90.0, decided.RefundPercentage)
	assert.Equal(t, 900.0, decided.RefundAmount)
	f.store.AssertExpectations(t)
}

func TestDecide_ApproveWithOverride(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	req := pendingRequest(order, userID)
	override := 60.0

	f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)
	f.expectCustomerLookup(userID, 1)
	f.store.On("ApplyDecision", mock.Anything, req, 1).Return(nil).Once()
	f.store.On("CancelOrderItems", mock.Anything, order.ID, mock.Anything).Return(nil)
	f.store.On("SetOrderStatus", mock.Anything, order.ID, models.OrderStatusCancelled).Return(nil)
	f.admin.On("NotifyCancellationDecided", req, order).Return(nil)
	f.customer.On("NotifyDecision", req, order, mock.Anything).Return(nil)
	f.executor.On("ExecuteRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.store.On("MarkProcessed", mock.Anything, req.ID, mock.Anything).Return(nil).Maybe()

	decided, err := f.svc.Decide(context.TODO(), req.ID, DecisionInput{Approve: true, OverridePercentage: &override, ExpectedVersion: 1})

	require.NoError(t, err)
	assert.Equal(t, 60.0, decided.RefundPercentage)
	assert.Equal(t, 600.0, decided.RefundAmount) // (900 + 100) * 0.6
	require.NotNil(t, decided.OverridePercentage)
}

func TestDecide_ApproveReclassifiesStalePartialToFull(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	// The second line was cancelled after submission, so the stored
	// selection now covers every remaining active line.
	order.Items[1].Status = models.ItemStatusCancelled
	req := pendingRequest(order, userID)
	req.Type = models.CancellationPartialItems
	req.ItemIDs = pq.StringArray{order.Items[0].ID.String()}

	f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)
	f.expectCustomerLookup(userID, 1)
	f.store.On("ApplyDecision", mock.Anything, req, 1).Return(nil).Once()
	f.store.On("CancelOrderItems", mock.Anything, order.ID, mock.Anything).Return(nil).Once()
	f.store.On("SetOrderStatus", mock.Anything, order.ID, models.OrderStatusCancelled).Return(nil).Once()
	f.admin.On("NotifyCancellationDecided", req, order).Return(nil).Once()
	f.customer.On("NotifyDecision", req, order, mock.Anything).Return(nil).Once()
	f.executor.On("ExecuteRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.store.On("MarkProcessed", mock.Anything, req.ID, mock.Anything).Return(nil).Maybe()

	decided, err := f.svc.Decide(context.TODO(), req.ID, DecisionInput{Approve: true, ExpectedVersion: 1})

	require.NoError(t, err)
	// A full-order row carries no item selection.
	assert.Equal(t, models.CancellationFullOrder, decided.Type)
	assert.Empty(t, decided.ItemIDs)
	assert.Equal(t, 630.0, decided.RefundAmount) // (600 + 100) * 0.9
	f.store.AssertExpectations(t)
}

func TestDecide_Reject(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)
	req := pendingRequest(order, userID)

	f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)
	f.store.On("ApplyDecision", mock.Anything, req, 1).Return(nil).Once()
	f.admin.On("NotifyCancellationDecided", req, order).Return(nil).Once()
	f.customer.On("NotifyDecision", req, order, mock.Anything).Return(nil).Once()
	f.store.On("GetUser", mock.Anything, userID).Return(fixtureUser(userID), nil).Maybe()

	decided, err := f.svc.Decide(context.TODO(), req.ID, DecisionInput{Approve: false, ExpectedVersion: 1, Notes: "outside policy"})

	require.NoError(t, err)
	assert.Equal(t, models.CancellationStatusRejected, decided.Status)
	// The submission snapshot is kept as history, not recomputed.
	assert.Equal(t, 90.0, decided.RefundPercentage)
	f.store.AssertNotCalled(t, "CancelOrderItems", mock.Anything, mock.Anything, mock.Anything)
	f.executor.AssertNotCalled(t, "ExecuteRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDecide_ConcurrencyConflict(t *testing.T) {
	t.Run("stale version rejected by the store", func(t *testing.T) {
		f := newFixture()
		userID := uuid.New()
		order := fixtureOrder(userID)
		req := pendingRequest(order, userID)

		f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)
		f.expectCustomerLookup(userID, 1)
		f.store.On("ApplyDecision", mock.Anything, req, 5).Return(repository.ErrConcurrencyConflict).Once()

		_, err := f.svc.Decide(context.TODO(), req.ID, DecisionInput{Approve: true, ExpectedVersion: 5})
		assert.ErrorIs(t, err, repository.ErrConcurrencyConflict)
	})

	t.Run("already decided request", func(t *testing.T) {
		f := newFixture()
		userID := uuid.New()
		order := fixtureOrder(userID)
		req := pendingRequest(order, userID)
		req.Status = models.CancellationStatusRejected

		f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)

		_, err := f.svc.Decide(context.TODO(), req.ID, DecisionInput{Approve: true, ExpectedVersion: 2})
		assert.ErrorIs(t, err, repository.ErrConcurrencyConflict)
	})
}

func TestDispatchRefund(t *testing.T) {
	t.Run("executes and marks processed", func(t *testing.T) {
		f := newFixture()
		userID := uuid.New()
		order := fixtureOrder(userID)
		req := pendingRequest(order, userID)
		req.Status = models.CancellationStatusApproved

		f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)
		f.executor.On("ExecuteRefund", mock.Anything, order, 900.0, 90.0).Return(nil).Once()
		f.store.On("MarkProcessed", mock.Anything, req.ID, fixedNow).Return(nil).Once()

		require.NoError(t, f.svc.DispatchRefund(context.TODO(), req.ID))
		f.executor.AssertExpectations(t)
		f.store.AssertExpectations(t)
	})

	t.Run("refuses requests that are not approved", func(t *testing.T) {
		f := newFixture()
		userID := uuid.New()
		order := fixtureOrder(userID)
		req := pendingRequest(order, userID)

		f.store.On("GetRequest", mock.Anything, req.ID).Return(req, nil)

		err := f.svc.DispatchRefund(context.TODO(), req.ID)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
		f.executor.AssertNotCalled(t, "ExecuteRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPreview(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	order := fixtureOrder(userID)

	f.store.On("GetOrder", mock.Anything, order.ID).Return(order, nil)
	f.expectCustomerLookup(userID, 1)

	quote, err := f.svc.Preview(context.TODO(), userID, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 90.0, quote.Percentage)
	assert.Equal(t, 900.0, quote.RefundAmount)
	assert.NotEmpty(t, quote.Breakdown)
}
