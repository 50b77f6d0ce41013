package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/stripe/stripe-go/v83"
	striperefund "github.com/stripe/stripe-go/v83/refund"

	"github.com/example/velora/internal/models"
)

// StripeRefundExecutor executes approved refunds against Stripe. The state
// machine hands it the frozen amount and percentage; it never recomputes
// anything.
type StripeRefundExecutor struct {
	enabled bool
}

// NewStripeRefundExecutor configures the global Stripe client. With an empty
// key the executor logs refund instructions instead of sending them, which
// keeps local development working without credentials.
func NewStripeRefundExecutor(apiKey string) *StripeRefundExecutor {
	if apiKey != "" {
		stripe.Key = apiKey
	}
	return &StripeRefundExecutor{enabled: apiKey != ""}
}

// ExecuteRefund creates a partial refund on the order's payment intent.
func (e *StripeRefundExecutor) ExecuteRefund(ctx context.Context, order *models.Order, amount, percentage float64) error {
	if !e.enabled {
		log.Printf("[Refund] Stripe disabled, skipping refund of %.2f (%.0f%%) for order %s", amount, percentage, order.OrderNumber)
		return nil
	}
	if order.PaymentIntentID == "" {
		return fmt.Errorf("order %s has no payment intent to refund against", order.OrderNumber)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(order.PaymentIntentID),
		Amount:        stripe.Int64(refundCents(amount)),
		Reason:        stripe.String("requested_by_customer"),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("refund_percentage", fmt.Sprintf("%.4f", percentage))

	result, err := striperefund.New(params)
	if err != nil {
		log.Printf("[Refund] Stripe refund failed for order %s: %v", order.OrderNumber, err)
		return err
	}

	log.Printf("[Refund] Stripe refund %s created for order %s: %.2f (%.0f%%)", result.ID, order.OrderNumber, amount, percentage)
	return nil
}

// refundCents converts a cent-rounded amount to integer cents. A bare int64
// conversion truncates toward zero: 539.35 is 539.3499... in float64, so
// 539.35*100 would come out as 53934.
func refundCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
