package workflows_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"order-processing-service/internal/activities"
	"order-processing-service/internal/modal"
	"order-processing-service/internal/workflows"
)

func testOrder(amount float64) modal.Order {
	return modal.Order{
		OrderID:       "7f3a2c1e",
		CustomerEmail: "buyer@example.com",
		Amount:        amount,
		ProductName:   "Mechanical Keyboard",
		Quantity:      2,
		OrderDate:     time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

// newTestEnv registers the workflow plus a deterministic Activities instance
// so every step can be mocked by method reference.
func newTestEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *activities.Activities) {
	t.Helper()

	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestWorkflowEnvironment()

	a := activities.New()
	a.Sleep = func(context.Context, time.Duration) error { return nil }
	a.Rand = func() float64 { return 0.5 }

	env.RegisterWorkflow(workflows.ProcessOrder)
	env.RegisterActivity(a)
	return env, a
}

// mockHappySteps stubs the non-compensating steps with successful results.
func mockHappySteps(env *testsuite.TestWorkflowEnvironment, a *activities.Activities) {
	env.OnActivity(a.ValidateInventory, mock.Anything, mock.Anything).Return(true, nil)
	env.OnActivity(a.ProcessPayment, mock.Anything, mock.Anything).Return("ab12cd34", nil)
	env.OnActivity(a.CreateShipment, mock.Anything, mock.Anything).Return("TRK123456", nil)
	env.OnActivity(a.SendConfirmationEmail, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.FinalizeOrder, mock.Anything, mock.Anything).Return(nil)
}

func workflowResult(t *testing.T, env *testsuite.TestWorkflowEnvironment) string {
	t.Helper()

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result string
	require.NoError(t, env.GetWorkflowResult(&result))
	return result
}

func TestProcessOrder_LowValueSuccess(t *testing.T) {
	env, a := newTestEnv(t)
	mockHappySteps(env, a)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(500))

	result := workflowResult(t, env)
	require.Contains(t, result, "processed successfully")
	require.True(t, strings.HasSuffix(result, "Order finalized"))
	require.Contains(t, result, "Payment processed: ab12cd34")
	require.Contains(t, result, "Shipment created: TRK123456")
	require.NotContains(t, result, "Manager approval received")
	env.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_HighValueApproved(t *testing.T) {
	env, a := newTestEnv(t)
	mockHappySteps(env, a)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(workflows.ManagerApprovalSignal, true)
	}, time.Hour)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(1500))

	result := workflowResult(t, env)
	require.Contains(t, result, "Manager approval received")
	require.True(t, strings.HasSuffix(result, "Order finalized"))
	env.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_HighValueRejected(t *testing.T) {
	env, a := newTestEnv(t)
	mockHappySteps(env, a)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(workflows.ManagerApprovalSignal, false)
	}, time.Hour)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(1500))

	result := workflowResult(t, env)
	require.Equal(t, "Order cancelled by manager", result)
	env.AssertNumberOfCalls(t, "CancelOrder", 1)
	env.AssertNotCalled(t, "FinalizeOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_ApprovalTimeout(t *testing.T) {
	env, a := newTestEnv(t)
	mockHappySteps(env, a)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	// No signal arrives; the 24h gate timer fires in virtual time.
	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(1500))

	result := workflowResult(t, env)
	require.Equal(t, "Order cancelled due to timeout", result)
	env.AssertNumberOfCalls(t, "CancelOrder", 1)
	env.AssertNotCalled(t, "FinalizeOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_ApprovalJustBeforeDeadline(t *testing.T) {
	env, a := newTestEnv(t)
	mockHappySteps(env, a)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(workflows.ManagerApprovalSignal, true)
	}, 24*time.Hour-time.Minute)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(1500))

	result := workflowResult(t, env)
	require.Contains(t, result, "Manager approval received")
	require.NotContains(t, result, "timeout")
	env.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_InsufficientInventory(t *testing.T) {
	env, a := newTestEnv(t)
	env.OnActivity(a.ValidateInventory, mock.Anything, mock.Anything).Return(false, nil)
	env.OnActivity(a.ProcessPayment, mock.Anything, mock.Anything).Return("", nil)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(500))

	result := workflowResult(t, env)
	require.Equal(t, "Order failed: Insufficient inventory", result)
	env.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_PaymentFailureCompensates(t *testing.T) {
	env, a := newTestEnv(t)
	env.OnActivity(a.ValidateInventory, mock.Anything, mock.Anything).Return(true, nil)
	env.OnActivity(a.ProcessPayment, mock.Anything, mock.Anything).
		Return("", temporal.NewNonRetryableApplicationError("payment gateway declined", "PaymentDeclined", nil))
	env.OnActivity(a.CreateShipment, mock.Anything, mock.Anything).Return("", nil)
	env.OnActivity(a.SendConfirmationEmail, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.FinalizeOrder, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(500))

	result := workflowResult(t, env)
	require.Contains(t, result, "failed and was cancelled: payment gateway declined")
	require.Contains(t, result, "7f3a2c1e")
	env.AssertNumberOfCalls(t, "CancelOrder", 1)
	env.AssertNotCalled(t, "CreateShipment", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "SendConfirmationEmail", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "FinalizeOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_CompensationFailureIsFatal(t *testing.T) {
	env, a := newTestEnv(t)
	env.OnActivity(a.ValidateInventory, mock.Anything, mock.Anything).Return(true, nil)
	env.OnActivity(a.ProcessPayment, mock.Anything, mock.Anything).
		Return("", temporal.NewNonRetryableApplicationError("payment gateway declined", "PaymentDeclined", nil))
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("cancellation service down", "CancelFailed", nil))

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(500))

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cancellation service down")
}

func TestProcessOrder_SignalIgnoredBelowThreshold(t *testing.T) {
	env, a := newTestEnv(t)
	mockHappySteps(env, a)
	env.OnActivity(a.CancelOrder, mock.Anything, mock.Anything).Return(nil)

	// Delivered but never awaited: low-value orders skip the gate entirely.
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(workflows.ManagerApprovalSignal, false)
	}, time.Millisecond)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(999))

	result := workflowResult(t, env)
	require.Contains(t, result, "processed successfully")
	require.NotContains(t, result, "Manager approval")
	env.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
}

func TestProcessOrder_StepsQuery(t *testing.T) {
	env, a := newTestEnv(t)
	mockHappySteps(env, a)

	env.ExecuteWorkflow(workflows.ProcessOrder, testOrder(500))
	require.True(t, env.IsWorkflowCompleted())

	v, err := env.QueryWorkflow(workflows.QuerySteps)
	require.NoError(t, err)
	var steps []string
	require.NoError(t, v.Get(&steps))
	require.Equal(t, []string{
		"Inventory validated",
		"Payment processed: ab12cd34",
		"Shipment created: TRK123456",
		"Confirmation email sent",
		"Order finalized",
	}, steps)

	v, err = env.QueryWorkflow(workflows.QueryOrder)
	require.NoError(t, err)
	var order modal.Order
	require.NoError(t, v.Get(&order))
	require.Equal(t, "7f3a2c1e", order.OrderID)
}

func TestAwaitingApproval(t *testing.T) {
	preGate := []string{
		"Inventory validated",
		"Payment processed: ab12cd34",
		"Shipment created: TRK123456",
		"Confirmation email sent",
	}

	require.True(t, workflows.AwaitingApproval(testOrder(1500), preGate))
	require.False(t, workflows.AwaitingApproval(testOrder(500), preGate))
	require.False(t, workflows.AwaitingApproval(testOrder(1500), preGate[:2]))
	require.False(t, workflows.AwaitingApproval(testOrder(1500), append(preGate[:4:4], "Manager approval received")))
}
