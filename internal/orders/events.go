package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderCancelled = "OrderCancelled"
	EventOrderFulfilled = "OrderFulfilled"
	EventStockRejected  = "StockRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string     `json:"order_id"`
	Customer   Customer   `json:"customer"`
	Items      []LineItem `json:"items"`
	TotalCents int        `json:"total_cents"`
}

type OrderCancelledPayload struct {
	OrderID string     `json:"order_id"`
	Items   []LineItem `json:"items"` // quantities restored to stock
}

type OrderFulfilledPayload struct {
	OrderID string `json:"order_id"`
}

type StockRejectedDetail struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

type StockRejectedPayload struct {
	OrderID string                `json:"order_id,omitempty"`
	Reason  string                `json:"reason"` // OUT_OF_STOCK
	Details []StockRejectedDetail `json:"details,omitempty"`
}
