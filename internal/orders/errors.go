package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InvalidRequestError names the first request field that failed
// validation. Nothing has been mutated when it is returned.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// InsufficientStockError reports the first product that could not cover
// the requested quantity. Available is a snapshot read right after the
// failed decrement.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// StorageError wraps a transient store failure. The surrounding
// operation has already compensated before surfacing it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// CompensationError means a stock restoration did not land after all
// retries. Stock for the named product is durably short until an
// operator intervenes, which is why this is a distinct, loud condition.
type CompensationError struct {
	OrderID   string
	ProductID string
	Qty       int
	Err       error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed for order %s: product %s qty %d: %v",
		e.OrderID, e.ProductID, e.Qty, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }
