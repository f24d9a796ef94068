package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
)

// InsufficientStockError: a deduction would drive stock below zero. This is a
// business fact, not a transient fault; callers must not retry it.
type InsufficientStockError struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Stock     int    `json:"stock"`
	Requested int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s: have %d, requested %d", e.SKU, e.Stock, e.Requested)
}

// ValidationError: the input is malformed or semantically invalid. Nothing was
// mutated. The optional fields identify the offending products so the caller
// can render a message without re-deriving anything.
type ValidationError struct {
	Msg               string  `json:"message"`
	MissingProductIDs []int64 `json:"missing_product_ids,omitempty"`
	ProductID         int64   `json:"product_id,omitempty"`
	SKU               string  `json:"sku,omitempty"`
	CurrentStock      int     `json:"current_stock,omitempty"`
	Delta             int     `json:"delta,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.MissingProductIDs) > 0 {
		return fmt.Sprintf("%s: %v", e.Msg, e.MissingProductIDs)
	}
	if e.ProductID != 0 {
		return fmt.Sprintf("%s: product %s (id=%d) stock %d, delta %d", e.Msg, e.SKU, e.ProductID, e.CurrentStock, e.Delta)
	}
	return e.Msg
}

// ConsistencyError: an order item points at a product that is gone from the
// locked set. Cannot happen unless the data itself is corrupt; the operation
// fails loudly instead of restocking a partial set.
type ConsistencyError struct {
	OrderID   int64
	ProductID int64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("order %d references missing product %d", e.OrderID, e.ProductID)
}
