package inventory

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated          = "OrderCreated"
	EventOrderCancelled        = "OrderCancelled"
	EventStockMovementRecorded = "StockMovementRecorded"
)

// Envelope wraps every event published to Kafka. Payload holds the
// event-specific body.
type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g. "erp-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id when order-scoped
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID      int64       `json:"order_id"`
	CustomerName string      `json:"customer_name"`
	Status       Status      `json:"status"`
	Items        []ItemInput `json:"items"`
}

type OrderCancelledPayload struct {
	OrderID int64       `json:"order_id"`
	Restock []ItemInput `json:"restock,omitempty"` // one entry per distinct product
	NoOp    bool        `json:"no_op"`             // true when the order was already cancelled
}

// StockMovementPayload mirrors one ledger row.
type StockMovementPayload struct {
	MovementID    int64  `json:"movement_id"`
	ProductID     int64  `json:"product_id"`
	OrderID       *int64 `json:"order_id,omitempty"`
	PreviousStock int    `json:"previous_stock"`
	Delta         int    `json:"delta"`
	NewStock      int    `json:"new_stock"`
	Reason        Reason `json:"reason"`
}

func MovementPayload(mv StockMovement) StockMovementPayload {
	return StockMovementPayload{
		MovementID:    mv.ID,
		ProductID:     mv.ProductID,
		OrderID:       mv.OrderID,
		PreviousStock: mv.PreviousStock,
		Delta:         mv.Delta,
		NewStock:      mv.NewStock,
		Reason:        mv.Reason,
	}
}
