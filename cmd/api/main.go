package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.temporal.io/api/common/v1"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"order-processing-service/internal/modal"
	"order-processing-service/internal/telemetry"
	"order-processing-service/internal/workflows"
)

type startResp struct {
	InstanceID        string `json:"instanceId"`
	OrderID           string `json:"orderId"`
	StatusQueryGetURI string `json:"statusQueryGetUri"`
	ApprovalURI       string `json:"approvalUri"`
}

func main() {
	logger := telemetry.NewLogger()

	tc, err := client.Dial(client.Options{
		HostPort: envOr("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Logger:   telemetry.NewTemporalLogger(logger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer tc.Close()

	r := chi.NewRouter()

	// Create the order and start an orchestration instance with it as input.
	// The workflow ID embeds the fresh orderId; REJECT_DUPLICATE keeps this
	// endpoint idempotent per order.
	r.Post("/orders/start", func(w http.ResponseWriter, r *http.Request) {
		var req modal.OrderStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, `invalid body: {"customerEmail":"...","amount":0,"productName":"...","quantity":1}`)
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		order := modal.Order{
			OrderID:       uuid.NewString(),
			CustomerEmail: req.CustomerEmail,
			Amount:        req.Amount,
			ProductName:   req.ProductName,
			Quantity:      req.Quantity,
			OrderDate:     time.Now().UTC(),
		}

		opts := client.StartWorkflowOptions{
			ID:                                       "order-" + order.OrderID,
			TaskQueue:                                workflows.TaskQueue,
			WorkflowExecutionErrorWhenAlreadyStarted: true,
			WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		we, err := tc.ExecuteWorkflow(ctx, opts, workflows.ProcessOrder, order)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		base := requestBaseURL(r)
		writeJSON(w, http.StatusAccepted, startResp{
			InstanceID:        we.GetID(),
			OrderID:           order.OrderID,
			StatusQueryGetURI: base + "/orders/" + we.GetID() + "/status",
			ApprovalURI:       base + "/orders/approve",
		})
	})

	r.Get("/orders/{instanceId}/status", func(w http.ResponseWriter, r *http.Request) {
		instanceID := chi.URLParam(r, "instanceId")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		st, err := instanceStatus(ctx, tc, instanceID)
		if err != nil {
			var notFound *serviceerror.NotFound
			if errors.As(err, &notFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Instance %s not found", instanceID))
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, st)
	})

	// Deliver the manager decision to the named instance. The substrate
	// accepts delivery to an instance that is not waiting (or has already
	// completed) and simply drops it; only unknown instances are an error.
	r.Post("/orders/approve", func(w http.ResponseWriter, r *http.Request) {
		var req modal.ApprovalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InstanceID == "" {
			writeError(w, http.StatusBadRequest, `invalid body: {"instanceId":"...","approved":true}`)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := tc.SignalWorkflow(ctx, req.InstanceID, "", workflows.ManagerApprovalSignal, req.Approved); err != nil {
			var notFound *serviceerror.NotFound
			if errors.As(err, &notFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Instance %s not found", req.InstanceID))
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Approval event sent successfully",
			"approved": req.Approved,
		})
	})

	// Out-of-band emergency stop. Terminated instances do NOT run the
	// compensating cancel step; side effects committed so far stay as-is.
	r.Delete("/orders/{instanceId}/terminate", func(w http.ResponseWriter, r *http.Request) {
		instanceID := chi.URLParam(r, "instanceId")

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := tc.TerminateWorkflow(ctx, instanceID, "", "Terminated by user request"); err != nil {
			var notFound *serviceerror.NotFound
			if errors.As(err, &notFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Instance %s not found", instanceID))
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Orchestration %s terminated successfully", instanceID),
		})
	})

	registerUIRoutes(r, tc)

	addr := envOr("API_ADDR", ":8090")
	log.Println("api listening on " + addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// instanceStatus assembles the status view from the execution description
// plus the serialized input/result recorded in history.
func instanceStatus(ctx context.Context, tc client.Client, instanceID string) (modal.InstanceStatus, error) {
	desc, err := tc.DescribeWorkflowExecution(ctx, instanceID, "")
	if err != nil {
		return modal.InstanceStatus{}, err
	}
	info := desc.GetWorkflowExecutionInfo()

	st := modal.InstanceStatus{
		InstanceID:    instanceID,
		RuntimeStatus: runtimeStatusLabel(info.GetStatus()),
		CreatedAt:     info.GetStartTime().AsTime(),
		LastUpdatedAt: info.GetStartTime().AsTime(),
	}
	if info.GetCloseTime() != nil {
		st.LastUpdatedAt = info.GetCloseTime().AsTime()
	}

	// First event carries the workflow input; the close event (absent while
	// still running) carries the result or failure.
	iter := tc.GetWorkflowHistory(ctx, instanceID, "", false, enums.HISTORY_EVENT_FILTER_TYPE_ALL_EVENT)
	if iter.HasNext() {
		ev, err := iter.Next()
		if err != nil {
			return modal.InstanceStatus{}, err
		}
		if attrs := ev.GetWorkflowExecutionStartedEventAttributes(); attrs != nil {
			st.Input = payloadString(attrs.GetInput())
		}
	}

	closeIter := tc.GetWorkflowHistory(ctx, instanceID, "", false, enums.HISTORY_EVENT_FILTER_TYPE_CLOSE_EVENT)
	if closeIter.HasNext() {
		ev, err := closeIter.Next()
		if err != nil {
			return modal.InstanceStatus{}, err
		}
		switch {
		case ev.GetWorkflowExecutionCompletedEventAttributes() != nil:
			st.Output = payloadString(ev.GetWorkflowExecutionCompletedEventAttributes().GetResult())
		case ev.GetWorkflowExecutionFailedEventAttributes() != nil:
			st.Output = ev.GetWorkflowExecutionFailedEventAttributes().GetFailure().GetMessage()
		case ev.GetWorkflowExecutionTerminatedEventAttributes() != nil:
			st.Output = ev.GetWorkflowExecutionTerminatedEventAttributes().GetReason()
		}
	}

	return st, nil
}

func runtimeStatusLabel(s enums.WorkflowExecutionStatus) string {
	switch s {
	case enums.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return modal.StatusRunning
	case enums.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return modal.StatusCompleted
	case enums.WORKFLOW_EXECUTION_STATUS_FAILED:
		return modal.StatusFailed
	case enums.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return modal.StatusTerminated
	case enums.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return modal.StatusCanceled
	case enums.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return modal.StatusTimedOut
	default:
		return modal.StatusUnknown
	}
}

// payloadString renders payloads as they were serialized (JSON under the
// default data converter).
func payloadString(p *common.Payloads) string {
	parts := make([]string, 0, len(p.GetPayloads()))
	for _, pl := range p.GetPayloads() {
		parts = append(parts, string(pl.GetData()))
	}
	return strings.Join(parts, ", ")
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
