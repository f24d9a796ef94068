package inventory

import "strconv"

const (
	// Order lifecycle events share one topic so created/cancelled keep their
	// relative order per order id.
	TopicOrderEvents = "inventory.order.events"

	// One event per ledger row, keyed by product id.
	TopicStockMovements = "inventory.stock.movements"
)

func OrderKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }

func ProductKey(productID int64) []byte { return []byte(strconv.FormatInt(productID, 10)) }
