package modal

import (
	"errors"
	"time"
)

// Order is the immutable input to the order processing workflow. It is
// created once by the start handler and passed by value into every
// activity; nothing mutates it after creation.
type Order struct {
	OrderID       string    `json:"orderId"`
	CustomerEmail string    `json:"customerEmail"`
	Amount        float64   `json:"amount"`
	ProductName   string    `json:"productName"`
	Quantity      int       `json:"quantity"`
	OrderDate     time.Time `json:"orderDate"`
}

// OrderStartRequest is the body of POST /orders/start. OrderID and
// OrderDate are assigned by the handler, not the caller.
type OrderStartRequest struct {
	CustomerEmail string  `json:"customerEmail"`
	Amount        float64 `json:"amount"`
	ProductName   string  `json:"productName"`
	Quantity      int     `json:"quantity"`
}

var (
	ErrMissingCustomerEmail = errors.New("customerEmail is required")
	ErrMissingProductName   = errors.New("productName is required")
	ErrNegativeAmount       = errors.New("amount must not be negative")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
)

// Validate checks the request fields. Any error here maps to a 400 at the
// HTTP boundary; the workflow is never started with an invalid order.
func (r OrderStartRequest) Validate() error {
	if r.CustomerEmail == "" {
		return ErrMissingCustomerEmail
	}
	if r.ProductName == "" {
		return ErrMissingProductName
	}
	if r.Amount < 0 {
		return ErrNegativeAmount
	}
	if r.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// ApprovalRequest is the body of POST /orders/approve. It targets a running
// orchestration instance; delivery to an instance that is not waiting is
// accepted and ignored.
type ApprovalRequest struct {
	InstanceID string `json:"instanceId"`
	Approved   bool   `json:"approved"`
}
