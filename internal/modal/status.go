package modal

import "time"

// InstanceStatus is the read-only view of an orchestration instance served
// by GET /orders/{instanceId}/status. Input and Output are the serialized
// workflow input/result as recorded in history, empty while unavailable.
type InstanceStatus struct {
	InstanceID    string    `json:"instanceId"`
	RuntimeStatus string    `json:"runtimeStatus"`
	Input         string    `json:"input,omitempty"`
	Output        string    `json:"output,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Runtime statuses reported by the status endpoint, mirroring the
// substrate's execution statuses.
const (
	StatusRunning    = "Running"
	StatusCompleted  = "Completed"
	StatusFailed     = "Failed"
	StatusTerminated = "Terminated"
	StatusCanceled   = "Canceled"
	StatusTimedOut   = "TimedOut"
	StatusUnknown    = "Unknown"
)
