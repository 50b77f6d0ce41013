package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/velora/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("repository: record not found")

// ErrConcurrencyConflict is returned when a decision update matched no row,
// meaning the request was decided concurrently or the caller holds a stale
// version. Exactly one of two concurrent decisions on the same request
// succeeds; the other gets this error.
var ErrConcurrencyConflict = errors.New("repository: concurrent decision conflict")

// CancellationStore is the persistence boundary of the cancellation flow. It
// also fronts order and user reads so the state machine has a single
// collaborator to mock in tests.
type CancellationStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CountOrdersForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	CreateRequest(ctx context.Context, req *models.CancellationRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.CancellationRequest, error)
	ListRequestsForUser(ctx context.Context, userID uuid.UUID) ([]models.CancellationRequest, error)
	HasPendingRequest(ctx context.Context, orderID uuid.UUID) (bool, error)

	// ApplyDecision persists the decision fields of req guarded by an
	// optimistic check on expectedVersion; the row must still be pending.
	ApplyDecision(ctx context.Context, req *models.CancellationRequest, expectedVersion int) error

	// MarkProcessed moves an approved request to processed.
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error

	// CancelOrderItems flips the given lines to cancelled; with no IDs it
	// cancels every active line of the order.
	CancelOrderItems(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) error
	SetOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error
}

// GormCancellationStore implements CancellationStore on Postgres.
type GormCancellationStore struct {
	db *gorm.DB
}

// NewGormCancellationStore constructs a GormCancellationStore.
func NewGormCancellationStore(db *gorm.DB) *GormCancellationStore {
	return &GormCancellationStore{db: db}
}

func (s *GormCancellationStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *GormCancellationStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormCancellationStore) CountOrdersForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (s *GormCancellationStore) CreateRequest(ctx context.Context, req *models.CancellationRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *GormCancellationStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.CancellationRequest, error) {
	var req models.CancellationRequest
	err := s.db.WithContext(ctx).
		Preload("Order").Preload("Order.Items").Preload("User").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *GormCancellationStore) ListRequestsForUser(ctx context.Context, userID uuid.UUID) ([]models.CancellationRequest, error) {
	var requests []models.CancellationRequest
	err := s.db.WithContext(ctx).
		Preload("Order").Preload("Order.Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&requests).Error
	return requests, err
}

func (s *GormCancellationStore) HasPendingRequest(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CancellationRequest{}).
		Where("order_id = ? AND status = ?", orderID, models.CancellationStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (s *GormCancellationStore) ApplyDecision(ctx context.Context, req *models.CancellationRequest, expectedVersion int) error {
	updates := map[string]any{
		"status":              req.Status,
		"version":             expectedVersion + 1,
		"refund_percentage":   req.RefundPercentage,
		"refund_amount":       req.RefundAmount,
		"items_total":         req.ItemsTotal,
		"delivery_component":  req.DeliveryComponent,
		"computed_at":         req.ComputedAt,
		"override_percentage": req.OverridePercentage,
		"admin_notes":         req.AdminNotes,
		"decided_at":          req.DecidedAt,
		"type":                req.Type,
		"item_ids":            req.ItemIDs,
	}

	result := s.db.WithContext(ctx).Model(&models.CancellationRequest{}).
		Where("id = ? AND version = ? AND status = ?", req.ID, expectedVersion, models.CancellationStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	req.Version = expectedVersion + 1
	return nil
}

func (s *GormCancellationStore) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.CancellationRequest{}).
		Where("id = ? AND status = ?", id, models.CancellationStatusApproved).
		Updates(map[string]any{
			"status":       models.CancellationStatusProcessed,
			"processed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	return nil
}

func (s *GormCancellationStore) CancelOrderItems(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) error {
	query := s.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("order_id = ? AND status = ?", orderID, models.ItemStatusActive)
	if len(itemIDs) > 0 {
		query = query.Where("id IN ?", itemIDs)
	}
	return query.Update("status", models.ItemStatusCancelled).Error
}

func (s *GormCancellationStore) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
