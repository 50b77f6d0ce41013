package refund

import (
	"math"
	"time"

	"github.com/example/velora/internal/models"
)

// CustomerInfo carries the customer attributes that influence the refund
// percentage. The service looks these up; the calculator stays pure.
type CustomerInfo struct {
	MembershipTier string
	OrderCount     int
}

// IsVIP reports whether the customer qualifies for the VIP bonus.
func (c CustomerInfo) IsVIP() bool {
	return c.MembershipTier == models.TierVIP || c.MembershipTier == models.TierPremium
}

// Adjustment is one applied term of the percentage calculation, for audit and
// for the breakdown shown in the cancellation modal.
type Adjustment struct {
	Reason string  `json:"reason"`
	Amount float64 `json:"amount"`
}

// PercentageResult is the outcome of the refund percentage calculation.
// Percentage is the unrounded value used for amount math; DisplayPercentage
// is the integer shown to users. Rounding only once, at display time, avoids
// double-rounding drift between the quoted percentage and the quoted amount.
type PercentageResult struct {
	Percentage        float64      `json:"percentage"`
	DisplayPercentage int          `json:"display_percentage"`
	Breakdown         []Adjustment `json:"breakdown"`
}

// ComputePercentage derives the refund percentage for cancelling the given
// order at the given instant. customPercentage, when non-nil, replaces the
// time-based base but still takes penalties, bonuses and clamping.
//
// The clock is always an explicit parameter so every time-bracket boundary is
// reachable from a deterministic test.
func ComputePercentage(order *models.Order, now time.Time, customPercentage *float64, customer *CustomerInfo, p Policy) PercentageResult {
	hoursSinceOrder := now.Sub(order.PlacedAt).Hours()
	daysSinceOrder := math.Floor(hoursSinceOrder / 24)

	var breakdown []Adjustment

	base := p.BaseAfterWeek
	reason := "ordered more than 7 days ago"
	switch {
	case hoursSinceOrder <= p.ResponseTimeHours:
		base = p.BaseFirstDay
		reason = "requested within response window"
	case daysSinceOrder <= 7:
		base = p.BaseFirstWeek
		reason = "requested within first week"
	}

	percentage := base
	if customPercentage != nil {
		percentage = *customPercentage
		reason = "custom base percentage"
	}
	breakdown = append(breakdown, Adjustment{Reason: reason, Amount: percentage})

	// Delivery-status penalty: the branches are mutually exclusive, but the
	// chosen one stacks with the timing penalties below.
	if order.ActualDeliveryDate != nil {
		daysSinceDelivery := math.Floor(now.Sub(*order.ActualDeliveryDate).Hours() / 24)
		penalty := p.DeliveredOlderPenalty
		reason := "delivered more than 30 days ago"
		switch {
		case daysSinceDelivery <= 7:
			penalty = p.DeliveredRecentPenalty
			reason = "delivered within the last 7 days"
		case daysSinceDelivery <= 30:
			penalty = p.DeliveredMonthPenalty
			reason = "delivered within the last 30 days"
		}
		percentage -= penalty
		breakdown = append(breakdown, Adjustment{Reason: reason, Amount: -penalty})
	} else if order.Status == models.OrderStatusDelivered {
		percentage -= p.DeliveredUnknownPenalty
		breakdown = append(breakdown, Adjustment{Reason: "order marked delivered", Amount: -p.DeliveredUnknownPenalty})
	}

	if order.EstimatedDeliveryDate != nil && now.After(*order.EstimatedDeliveryDate) {
		percentage -= p.PastEstimatePenalty
		breakdown = append(breakdown, Adjustment{Reason: "past estimated delivery date", Amount: -p.PastEstimatePenalty})
	}

	if daysSinceOrder > 7 {
		percentage -= p.LateRequestPenalty
		breakdown = append(breakdown, Adjustment{Reason: "late cancellation request", Amount: -p.LateRequestPenalty})
	}

	if customer != nil {
		if customer.IsVIP() {
			percentage += p.VIPBonus
			breakdown = append(breakdown, Adjustment{Reason: "vip membership", Amount: p.VIPBonus})
		}
		if customer.OrderCount >= p.LoyalOrderThreshold {
			percentage += p.LoyalCustomerBonus
			breakdown = append(breakdown, Adjustment{Reason: "loyal customer", Amount: p.LoyalCustomerBonus})
		}
	}

	if percentage < p.MinPercentage {
		breakdown = append(breakdown, Adjustment{Reason: "minimum refund percentage", Amount: p.MinPercentage - percentage})
		percentage = p.MinPercentage
	}
	if percentage > p.MaxPercentage {
		breakdown = append(breakdown, Adjustment{Reason: "maximum refund percentage", Amount: p.MaxPercentage - percentage})
		percentage = p.MaxPercentage
	}

	return PercentageResult{
		Percentage:        percentage,
		DisplayPercentage: int(math.Round(percentage)),
		Breakdown:         breakdown,
	}
}
