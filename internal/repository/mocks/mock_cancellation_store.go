package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/example/velora/internal/models"
)

type MockCancellationStore struct {
	mock.Mock
}

func (m *MockCancellationStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if o := args.Get(0); o != nil {
		return o.(*models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCancellationStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCancellationStore) CountOrdersForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCancellationStore) CreateRequest(ctx context.Context, req *models.CancellationRequest) error {
	args := m.Called(ctx, req)
	if req != nil && args.Error(0) == nil && req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockCancellationStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.CancellationRequest, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*models.CancellationRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCancellationStore) ListRequestsForUser(ctx context.Context, userID uuid.UUID) ([]models.CancellationRequest, error) {
	args := m.Called(ctx, userID)
	if r := args.Get(0); r != nil {
		return r.([]models.CancellationRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCancellationStore) HasPendingRequest(ctx context.Context, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCancellationStore) ApplyDecision(ctx context.Context, req *models.CancellationRequest, expectedVersion int) error {
	args := m.Called(ctx, req, expectedVersion)
	return args.Error(0)
}

func (m *MockCancellationStore) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockCancellationStore) CancelOrderItems(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) error {
	args := m.Called(ctx, orderID, itemIDs)
	return args.Error(0)
}

func (m *MockCancellationStore) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}
