package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Cancellation request types.
const (
	CancellationFullOrder    = "full_order"
	CancellationPartialItems = "partial_items"
)

// Cancellation request statuses. A request is created pending, moves exactly
// once to approved or rejected, and an approved request moves to processed
// after the payment provider confirms the refund. Rejected and processed are
// terminal.
const (
	CancellationStatusPending   = "pending"
	CancellationStatusApproved  = "approved"
	CancellationStatusRejected  = "rejected"
	CancellationStatusProcessed = "processed"
)

// CancellationRequest is one customer ask to cancel an order or a subset of
// its lines.
//
// While the request is pending, the quoted percentage and amount shown to any
// caller are recomputed live, because the refund percentage decays with
// elapsed time. Once the request leaves pending, the stored snapshot (or the
// admin override) is authoritative and is never recomputed.
type CancellationRequest struct {
	BaseModel
	OrderID          uuid.UUID      `gorm:"type:uuid;index" json:"order_id"`
	Order            *Order         `json:"order,omitempty"`
	UserID           uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	User             *User          `json:"user,omitempty"`
	Type             string         `json:"type"`
	ItemIDs          pq.StringArray `gorm:"type:text[]" json:"item_ids"`
	Reason           string         `json:"reason"`
	AdditionalReason string         `json:"additional_reason"`
	Status           string         `gorm:"default:pending;index" json:"status"`
	Version          int            `gorm:"default:1" json:"version"`

	// Pricing snapshot computed at submission and frozen at decision time.
	RefundPercentage  float64   `json:"refund_percentage"`
	RefundAmount      float64   `json:"refund_amount"`
	ItemsTotal        float64   `json:"items_total"`
	DeliveryComponent float64   `json:"delivery_component"`
	ComputedAt        time.Time `json:"computed_at"`

	// Admin decision, set when the request leaves pending.
	OverridePercentage *float64   `json:"override_percentage"`
	AdminNotes         string     `json:"admin_notes"`
	DecidedAt          *time.Time `json:"decided_at"`
	ProcessedAt        *time.Time `json:"processed_at"`
}

// CancelledItemIDs parses the stored line IDs. Malformed entries are skipped;
// the store only ever writes valid UUIDs.
func (r *CancellationRequest) CancelledItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.ItemIDs))
	for _, raw := range r.ItemIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsDecided reports whether the request has left pending.
func (r *CancellationRequest) IsDecided() bool {
	return r.Status != CancellationStatusPending
}
