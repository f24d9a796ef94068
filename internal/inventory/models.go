package inventory

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusDraft:     {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusCancelled: true},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Reason classifies a stock movement. Movements tied to an order lifecycle
// carry ReasonOrder; operator corrections carry ReasonManual.
type Reason string

const (
	ReasonOrder  Reason = "order"
	ReasonManual Reason = "manual_adjustment"
)

type Product struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID           int64       `json:"id"`
	CustomerName string      `json:"customer_name"`
	CustomerID   *int64      `json:"customer_id,omitempty"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	Items        []OrderItem `json:"items"`
}

// OrderItem is immutable once created; quantity corrections go through
// cancellation or a manual stock adjustment, never an item update.
type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// StockMovement is one row of the append-only ledger. new_stock is always
// previous_stock + delta, written in the same transaction as the stock update.
type StockMovement struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	OrderID       *int64    `json:"order_id,omitempty"`
	PreviousStock int       `json:"previous_stock"`
	Delta         int       `json:"delta"`
	NewStock      int       `json:"new_stock"`
	Reason        Reason    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}
