package main

import (
	"log"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"order-processing-service/internal/activities"
	"order-processing-service/internal/telemetry"
	"order-processing-service/internal/workflows"
)

func main() {
	logger := telemetry.NewLogger()

	c, err := client.Dial(client.Options{
		HostPort: envOr("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Logger:   telemetry.NewTemporalLogger(logger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, workflows.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ProcessOrder)

	// Registers every step executor under its method name; the workflow
	// invokes them by those names.
	w.RegisterActivity(activities.New())

	log.Printf("worker started (taskQueue=%s)\n", workflows.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
