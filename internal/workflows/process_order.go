package workflows

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"order-processing-service/internal/modal"
)

const TaskQueue = "ORDER_PROCESSING_TASK_QUEUE"

// ManagerApprovalSignal carries a boolean payload: true approves the order,
// false rejects it.
const ManagerApprovalSignal = "ManagerApproval"

// Query names for reading workflow progress without a separate read model.
const (
	QueryOrder = "order"
	QuerySteps = "steps"
)

// Orders above this amount suspend and wait for a manager decision.
const approvalThreshold = 1000

// How long the approval gate waits before cancelling the order.
const approvalTimeout = 24 * time.Hour

type workflowState struct {
	Order modal.Order `json:"order"`
	Steps []string    `json:"steps,omitempty"`
}

type approvalResult int

const (
	approvalGranted approvalResult = iota
	approvalRejected
	approvalTimedOut
)

// ProcessOrder drives one order through inventory validation, payment,
// shipment, customer notification, an optional manager-approval gate, and
// finalization. Any failed step, a rejection, or an approval timeout routes
// through a single compensating CancelOrder call before returning the
// terminal outcome message.
//
// The body must stay deterministic: time only through workflow.Now and the
// gate timer, no randomness, no environment reads. On replay the substrate
// feeds recorded step results back in, so already-committed side effects are
// never re-executed.
func ProcessOrder(ctx workflow.Context, order modal.Order) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Order processing started", "orderId", order.OrderID, "amount", order.Amount)

	state := &workflowState{Order: order, Steps: make([]string, 0, 6)}

	// Queries for the API/UI to read progress without an extra DB.
	_ = workflow.SetQueryHandler(ctx, QueryOrder, func() (modal.Order, error) {
		return state.Order, nil
	})
	_ = workflow.SetQueryHandler(ctx, QuerySteps, func() ([]string, error) {
		return state.Steps, nil
	})

	// Per-step retry budget: up to 3 attempts with exponential backoff
	// (1s, 2s, 4s). A step that exhausts this budget surfaces here as a
	// terminal error and takes the compensation path.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Compensation: cancel the order exactly once, then return the terminal
	// outcome. If the cancel step itself fails there is no further recovery;
	// the error becomes the instance's failed status.
	cancelAndReturn := func(outcome string) (string, error) {
		logger.Info("Compensating: cancelling order", "orderId", order.OrderID)
		if err := workflow.ExecuteActivity(ctx, "CancelOrder", order).Get(ctx, nil); err != nil {
			logger.Error("Compensation failed", "orderId", order.OrderID, "error", err)
			return "", err
		}
		return outcome, nil
	}

	// Step 1: validate inventory. A false result is a business outcome and
	// short-circuits before anything was committed, so no compensation runs.
	var available bool
	if err := workflow.ExecuteActivity(ctx, "ValidateInventory", order).Get(ctx, &available); err != nil {
		return cancelAndReturn(failedOutcome(order, err))
	}
	if !available {
		logger.Info("Insufficient inventory", "orderId", order.OrderID)
		return "Order failed: Insufficient inventory", nil
	}
	state.Steps = append(state.Steps, "Inventory validated")

	// Step 2: process payment.
	var transactionID string
	if err := workflow.ExecuteActivity(ctx, "ProcessPayment", order).Get(ctx, &transactionID); err != nil {
		return cancelAndReturn(failedOutcome(order, err))
	}
	state.Steps = append(state.Steps, "Payment processed: "+transactionID)

	// Step 3: create shipment.
	var trackingNumber string
	if err := workflow.ExecuteActivity(ctx, "CreateShipment", order).Get(ctx, &trackingNumber); err != nil {
		return cancelAndReturn(failedOutcome(order, err))
	}
	state.Steps = append(state.Steps, "Shipment created: "+trackingNumber)

	// Step 4: send confirmation email.
	if err := workflow.ExecuteActivity(ctx, "SendConfirmationEmail", order).Get(ctx, nil); err != nil {
		return cancelAndReturn(failedOutcome(order, err))
	}
	state.Steps = append(state.Steps, "Confirmation email sent")

	// Step 5: high-value orders wait for a manager decision under a deadline.
	if order.Amount > approvalThreshold {
		logger.Info("Awaiting manager approval", "orderId", order.OrderID, "deadline", workflow.Now(ctx).Add(approvalTimeout))

		switch awaitManagerApproval(ctx) {
		case approvalGranted:
			state.Steps = append(state.Steps, "Manager approval received")
		case approvalRejected:
			logger.Info("Order rejected by manager", "orderId", order.OrderID)
			return cancelAndReturn("Order cancelled by manager")
		case approvalTimedOut:
			logger.Info("Approval deadline expired", "orderId", order.OrderID)
			return cancelAndReturn("Order cancelled due to timeout")
		}
	}

	// Step 6: finalize.
	if err := workflow.ExecuteActivity(ctx, "FinalizeOrder", order).Get(ctx, nil); err != nil {
		return cancelAndReturn(failedOutcome(order, err))
	}
	state.Steps = append(state.Steps, "Order finalized")

	logger.Info("Order processing completed", "orderId", order.OrderID)
	return fmt.Sprintf("Order %s processed successfully. Steps: %s", order.OrderID, strings.Join(state.Steps, ", ")), nil
}

// awaitManagerApproval races the ManagerApproval signal against the
// approval deadline. Exactly one of the two legs decides the result; the
// loser is abandoned. An approval landing at the same instant the timer
// fires wins the race, which is why the signal channel is drained once more
// after a timer win.
func awaitManagerApproval(ctx workflow.Context) approvalResult {
	var approved bool
	received := false

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	timer := workflow.NewTimer(timerCtx, approvalTimeout)
	ch := workflow.GetSignalChannel(ctx, ManagerApprovalSignal)

	selector := workflow.NewSelector(ctx)
	selector.AddReceive(ch, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &approved)
		received = true
	})
	selector.AddFuture(timer, func(f workflow.Future) {})

	selector.Select(ctx)

	if !received && ch.ReceiveAsync(&approved) {
		received = true
	}
	if !received {
		return approvalTimedOut
	}

	cancelTimer()
	if approved {
		return approvalGranted
	}
	return approvalRejected
}

// AwaitingApproval reports whether a running instance with the given
// progress is suspended at the approval gate: high-value orders sit there
// after exactly the four pre-gate steps have completed.
func AwaitingApproval(order modal.Order, steps []string) bool {
	return order.Amount > approvalThreshold && len(steps) == 4
}

// failedOutcome renders the terminal message for a step that exhausted its
// retry budget, preferring the activity's own message over the SDK's
// wrapped error chain.
func failedOutcome(order modal.Order, err error) string {
	var appErr *temporal.ApplicationError
	msg := err.Error()
	if errors.As(err, &appErr) {
		msg = appErr.Message()
	}
	return fmt.Sprintf("Order %s failed and was cancelled: %s", order.OrderID, msg)
}
