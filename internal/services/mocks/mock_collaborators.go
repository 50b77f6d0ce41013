package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/example/velora/internal/models"
)

type MockRefundExecutor struct {
	mock.Mock
}

func (m *MockRefundExecutor) ExecuteRefund(ctx context.Context, order *models.Order, amount, percentage float64) error {
	args := m.Called(ctx, order, amount, percentage)
	return args.Error(0)
}

type MockCustomerNotifier struct {
	mock.Mock
}

func (m *MockCustomerNotifier) NotifyDecision(req *models.CancellationRequest, order *models.Order, user *models.User) error {
	args := m.Called(req, order, user)
	return args.Error(0)
}

type MockAdminNotifier struct {
	mock.Mock
}

func (m *MockAdminNotifier) NotifyCancellationRequested(req *models.CancellationRequest, order *models.Order) error {
	args := m.Called(req, order)
	return args.Error(0)
}

func (m *MockAdminNotifier) NotifyCancellationDecided(req *models.CancellationRequest, order *models.Order) error {
	args := m.Called(req, order)
	return args.Error(0)
}
