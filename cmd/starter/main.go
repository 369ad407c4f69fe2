package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"order-processing-service/internal/modal"
	"order-processing-service/internal/telemetry"
	"order-processing-service/internal/workflows"
)

// Starts a single order workflow from the command line and waits for the
// outcome. Orders above 1000 suspend at the approval gate; approve or reject
// them through the API (POST /orders/approve) or the dashboard at /ui while
// this process waits.
func main() {
	var (
		email   string
		product string
		amount  float64
		qty     int
	)
	flag.StringVar(&email, "email", "customer@example.com", "customer email")
	flag.StringVar(&product, "product", "Widget", "product name")
	flag.Float64Var(&amount, "amount", 500, "order amount; above 1000 requires manager approval")
	flag.IntVar(&qty, "quantity", 1, "quantity")
	flag.Parse()

	logger := telemetry.NewLogger()

	c, err := client.Dial(client.Options{
		HostPort: envOr("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Logger:   telemetry.NewTemporalLogger(logger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	order := modal.Order{
		OrderID:       uuid.NewString(),
		CustomerEmail: email,
		Amount:        amount,
		ProductName:   product,
		Quantity:      qty,
		OrderDate:     time.Now().UTC(),
	}

	opts := client.StartWorkflowOptions{
		ID:                                       "order-" + order.OrderID,
		TaskQueue:                                workflows.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	we, err := c.ExecuteWorkflow(ctx, opts, workflows.ProcessOrder, order)
	if err != nil {
		log.Fatalf("unable to execute workflow: %v", err)
	}

	log.Printf("started workflow: WorkflowID=%s RunID=%s orderID=%s\n", we.GetID(), we.GetRunID(), order.OrderID)

	var result string
	if err := we.Get(context.Background(), &result); err != nil {
		log.Fatalf("unable to get workflow result: %v", err)
	}
	log.Printf("workflow result: %s\n", result)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
