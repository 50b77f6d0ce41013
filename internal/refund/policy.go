package refund

// Policy carries every rate the refund engine uses. The engine never reads
// configuration itself; callers build a Policy (config.Load does this from
// the environment) and pass it in.
type Policy struct {
	// ResponseTimeHours is the width of the most generous bracket: requests
	// submitted within this many hours of placement get BaseFirstDay.
	ResponseTimeHours float64

	// Base percentages by elapsed time since order placement.
	BaseFirstDay  float64
	BaseFirstWeek float64
	BaseAfterWeek float64

	// Delivery-status penalties. Exactly one of these applies per request.
	DeliveredRecentPenalty  float64 // delivered within the last 7 days
	DeliveredMonthPenalty   float64 // delivered within the last 30 days
	DeliveredOlderPenalty   float64 // delivered longer ago
	DeliveredUnknownPenalty float64 // marked delivered but no delivery date on record

	// Timing penalties, stackable with the delivery-status penalty and with
	// each other.
	PastEstimatePenalty float64 // now is past the estimated delivery date
	LateRequestPenalty  float64 // request raised more than 7 days after placement

	// Customer bonuses.
	VIPBonus            float64
	LoyalCustomerBonus  float64
	LoyalOrderThreshold int

	// Hard bounds applied after all adjustments.
	MinPercentage float64
	MaxPercentage float64
}

// DefaultPolicy returns the storefront's standard cancellation policy.
func DefaultPolicy() Policy {
	return Policy{
		ResponseTimeHours:       24,
		BaseFirstDay:            90,
		BaseFirstWeek:           75,
		BaseAfterWeek:           50,
		DeliveredRecentPenalty:  20,
		DeliveredMonthPenalty:   30,
		DeliveredOlderPenalty:   25,
		DeliveredUnknownPenalty: 25,
		PastEstimatePenalty:     15,
		LateRequestPenalty:      15,
		VIPBonus:                10,
		LoyalCustomerBonus:      5,
		LoyalOrderThreshold:     5,
		MinPercentage:           25,
		MaxPercentage:           100,
	}
}
