package refund

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/velora/internal/models"
)

// AmountResult is the refund amount for a full-order cancellation.
type AmountResult struct {
	RefundAmount      float64  `json:"refund_amount"`
	ItemsTotal        float64  `json:"items_total"`
	DeliveryComponent float64  `json:"delivery_component"`
	Warnings          []string `json:"-"`
}

// PartialAmountResult is the refund amount for a partial-items cancellation.
// ReclassifyToFull signals the caller that the selected items cover every
// remaining active line, so the request must be persisted and reviewed as a
// full-order cancellation to keep downstream accounting consistent.
type PartialAmountResult struct {
	AmountResult
	ReclassifyToFull bool `json:"reclassify_to_full"`
}

// ComputeFullRefund sums the resolved line totals of every active item plus
// the whole delivery charge and applies the percentage.
func ComputeFullRefund(order *models.Order, percentage float64) AmountResult {
	var res AmountResult
	for _, item := range order.Items {
		if item.Status != models.ItemStatusActive {
			continue
		}
		price := ResolvePrice(item)
		res.ItemsTotal += price.LineTotal
		res.Warnings = append(res.Warnings, price.Warnings...)
	}

	res.DeliveryComponent = round2(order.DeliveryCharge * percentage / 100)
	res.RefundAmount = round2((res.ItemsTotal + order.DeliveryCharge) * percentage / 100)
	return res
}

// ComputePartialRefund computes the refund for cancelling a subset of lines:
// per-item refunds plus a share of the delivery charge proportional to the
// cancelled value. When the subset covers every active line the entire
// delivery charge is refunded and the result is flagged for reclassification.
func ComputePartialRefund(order *models.Order, itemsToCancel []uuid.UUID, percentage float64) PartialAmountResult {
	var res PartialAmountResult

	selected := make(map[uuid.UUID]bool, len(itemsToCancel))
	for _, id := range itemsToCancel {
		selected[id] = true
	}

	var totalItemRefund float64
	for _, item := range order.Items {
		if !selected[item.ID] {
			continue
		}
		price := ResolvePrice(item)
		res.ItemsTotal += price.LineTotal
		totalItemRefund += round2(price.LineTotal * percentage / 100)
		res.Warnings = append(res.Warnings, price.Warnings...)
	}

	activeCount := order.ActiveItemCount()
	res.ReclassifyToFull = len(selected) == activeCount && activeCount > 0

	var deliveryBase float64
	if res.ReclassifyToFull {
		deliveryBase = order.DeliveryCharge
	} else {
		excl := order.Subtotal
		if excl <= 0 {
			excl = order.TotalAmount - order.DeliveryCharge
		}
		if excl > 0 {
			deliveryBase = order.DeliveryCharge * (res.ItemsTotal / excl)
		}
	}

	res.DeliveryComponent = round2(deliveryBase * percentage / 100)
	res.RefundAmount = totalItemRefund + res.DeliveryComponent
	return res
}

// Quote is a complete refund calculation for one cancellation request:
// percentage, amount, components, audit breakdown and data-quality warnings.
type Quote struct {
	Type              string       `json:"type"`
	Percentage        float64      `json:"percentage"`
	DisplayPercentage int          `json:"display_percentage"`
	RefundAmount      float64      `json:"refund_amount"`
	ItemsTotal        float64      `json:"items_total"`
	DeliveryComponent float64      `json:"delivery_component"`
	Breakdown         []Adjustment `json:"breakdown"`
	Warnings          []string     `json:"warnings,omitempty"`
	ComputedAt        time.Time    `json:"computed_at"`
}

// BuildQuote runs the full pipeline for one request: percentage calculation,
// then the full or partial amount calculator. itemsToCancel empty means a
// full-order cancellation. Pure; safe for concurrent use.
func BuildQuote(order *models.Order, itemsToCancel []uuid.UUID, now time.Time, customPercentage *float64, customer *CustomerInfo, p Policy) Quote {
	pct := ComputePercentage(order, now, customPercentage, customer, p)

	q := Quote{
		Type:              models.CancellationFullOrder,
		Percentage:        pct.Percentage,
		DisplayPercentage: pct.DisplayPercentage,
		Breakdown:         pct.Breakdown,
		ComputedAt:        now,
	}

	if len(itemsToCancel) == 0 {
		full := ComputeFullRefund(order, pct.Percentage)
		q.RefundAmount = full.RefundAmount
		q.ItemsTotal = full.ItemsTotal
		q.DeliveryComponent = full.DeliveryComponent
		q.Warnings = full.Warnings
		return q
	}

	partial := ComputePartialRefund(order, itemsToCancel, pct.Percentage)
	q.RefundAmount = partial.RefundAmount
	q.ItemsTotal = partial.ItemsTotal
	q.DeliveryComponent = partial.DeliveryComponent
	q.Warnings = partial.Warnings
	if !partial.ReclassifyToFull {
		q.Type = models.CancellationPartialItems
	}
	return q
}
