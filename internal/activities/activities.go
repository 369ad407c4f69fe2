package activities

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"order-processing-service/internal/modal"
)

// Activities holds the order processing step executors. The downstream
// collaborators (inventory service, payment gateway, carrier, mailer) are
// simulated with latency and randomized outcomes; Rand and Sleep are
// injectable so tests run deterministically and without real timers.
//
// Every step must stay safe under at-least-once redelivery: the worker may
// re-run a step after a crash, so side effects are modeled as re-triggerable.
type Activities struct {
	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand func() float64
	// Sleep simulates downstream latency. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func New() *Activities {
	return &Activities{
		Rand:  rand.Float64,
		Sleep: sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ValidateInventory checks stock for the order. Returns false when the
// product is unavailable; that is a business outcome, not an error.
func (a *Activities) ValidateInventory(ctx context.Context, order modal.Order) (bool, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Validating inventory", "orderId", order.OrderID, "product", order.ProductName, "quantity", order.Quantity)

	if err := a.Sleep(ctx, 2*time.Second); err != nil {
		return false, err
	}

	// Simulated stock check with a 90% pass rate.
	available := a.Rand() > 0.1

	logger.Info("Inventory validation result", "orderId", order.OrderID, "available", available)
	return available, nil
}

// ProcessPayment charges the customer and returns the transaction id.
func (a *Activities) ProcessPayment(ctx context.Context, order modal.Order) (string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Processing payment", "orderId", order.OrderID, "amount", order.Amount)

	if err := a.Sleep(ctx, 3*time.Second); err != nil {
		return "", err
	}

	transactionID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	logger.Info("Payment processed", "orderId", order.OrderID, "transactionId", transactionID)
	return transactionID, nil
}

// CreateShipment books the shipment and returns the carrier tracking number.
func (a *Activities) CreateShipment(ctx context.Context, order modal.Order) (string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating shipment", "orderId", order.OrderID)

	if err := a.Sleep(ctx, 1500*time.Millisecond); err != nil {
		return "", err
	}

	trackingNumber := fmt.Sprintf("TRK%06d", 100000+int(a.Rand()*900000))

	logger.Info("Shipment created", "orderId", order.OrderID, "trackingNumber", trackingNumber)
	return trackingNumber, nil
}

// SendConfirmationEmail notifies the customer that the order went through.
func (a *Activities) SendConfirmationEmail(ctx context.Context, order modal.Order) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Sending confirmation email", "orderId", order.OrderID, "customerEmail", order.CustomerEmail)

	if err := a.Sleep(ctx, time.Second); err != nil {
		return err
	}

	logger.Info("Confirmation email sent", "orderId", order.OrderID)
	return nil
}

// FinalizeOrder performs the closing bookkeeping for a fulfilled order.
func (a *Activities) FinalizeOrder(ctx context.Context, order modal.Order) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Finalizing order", "orderId", order.OrderID)

	if err := a.Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}

	logger.Info("Order finalized", "orderId", order.OrderID)
	return nil
}

// CancelOrder is the compensating step: it voids whatever the preceding
// steps committed (payment, shipment, notification). It must be idempotent;
// the orchestrator calls it at most once per run but the worker may redeliver.
func (a *Activities) CancelOrder(ctx context.Context, order modal.Order) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Cancelling order", "orderId", order.OrderID)

	if err := a.Sleep(ctx, time.Second); err != nil {
		return err
	}

	logger.Info("Order cancelled", "orderId", order.OrderID)
	return nil
}
