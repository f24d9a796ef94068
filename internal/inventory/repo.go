package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Adjustment struct {
	ProductID int64 `json:"product_id"`
	Delta     int   `json:"delta"`
}

type CreateOrderInput struct {
	CustomerName string      `json:"customer_name"`
	CustomerID   *int64      `json:"customer_id,omitempty"`
	Status       Status      `json:"status,omitempty"` // empty -> confirmed
	Items        []ItemInput `json:"items"`
}

// Repo is the inventory engine. Every mutating call runs inside a single
// transaction: product rows are locked in ascending id order, stock is
// adjusted, and one ledger row per touched product is appended before commit.
type Repo struct{ DB *pgxpool.Pool }

// distinctSortedIDs dedups and sorts ascending. All multi-row locking goes
// through this so two operations over overlapping product sets acquire locks
// in the same order and cannot deadlock each other.
func distinctSortedIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sumByProduct(items []OrderItem) map[int64]int {
	sums := make(map[int64]int, len(items))
	for _, it := range items {
		sums[it.ProductID] += it.Quantity
	}
	return sums
}

// lockProducts takes exclusive row locks on the given ids. ids must already be
// distinct and ascending; ORDER BY id on the locking select makes the rows be
// locked in that same order.
func lockProducts(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]*Product, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, sku, name, stock, created_at, updated_at
		FROM products WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make(map[int64]*Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		locked[p.ID] = &p
	}
	return locked, rows.Err()
}

// adjustLocked applies delta to a product row the caller has locked in tx.
// Returns the stock before and after so the caller can append the matching
// ledger row in the same transaction.
func adjustLocked(ctx context.Context, tx pgx.Tx, p *Product, delta int) (prev, next int, err error) {
	prev = p.Stock
	next = prev + delta
	if delta < 0 && next < 0 {
		return 0, 0, &InsufficientStockError{ProductID: p.ID, SKU: p.SKU, Stock: prev, Requested: -delta}
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, p.ID, next); err != nil {
		return 0, 0, fmt.Errorf("update stock: %w", err)
	}
	p.Stock = next
	return prev, next, nil
}

// CreateOrder inserts the order and its items, deducting stock per item in
// submission order. If any item cannot be covered the whole transaction rolls
// back: no order, no items, no stock change, no movements.
func (r *Repo) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, []StockMovement, error) {
	status := in.Status
	if status == "" {
		status = StatusConfirmed
	}
	if !status.Valid() {
		return nil, nil, &ValidationError{Msg: fmt.Sprintf("invalid order status %q", in.Status)}
	}
	if in.CustomerName == "" {
		return nil, nil, &ValidationError{Msg: "customer name is required"}
	}
	if len(in.Items) == 0 {
		return nil, nil, &ValidationError{Msg: "order has no items"}
	}
	ids := make([]int64, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, nil, &ValidationError{Msg: "items need a product id and a positive quantity"}
		}
		ids = append(ids, it.ProductID)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := lockProducts(ctx, tx, distinctSortedIDs(ids))
	if err != nil {
		return nil, nil, err
	}
	if missing := missingIDs(ids, locked); len(missing) > 0 {
		return nil, nil, &ValidationError{Msg: "products not found", MissingProductIDs: missing}
	}

	o := &Order{CustomerName: in.CustomerName, CustomerID: in.CustomerID, Status: status}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_name, customer_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, o.CustomerName, o.CustomerID, o.Status).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert order: %w", err)
	}

	movements := make([]StockMovement, 0, len(in.Items))
	for _, it := range in.Items {
		p := locked[it.ProductID]
		prev, next, err := adjustLocked(ctx, tx, p, -it.Quantity)
		if err != nil {
			return nil, nil, err
		}
		item := OrderItem{OrderID: o.ID, ProductID: it.ProductID, Quantity: it.Quantity}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id`, item.OrderID, item.ProductID, item.Quantity).Scan(&item.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("insert order item: %w", err)
		}
		o.Items = append(o.Items, item)

		mv := StockMovement{
			ProductID:     p.ID,
			OrderID:       &o.ID,
			PreviousStock: prev,
			Delta:         -it.Quantity,
			NewStock:      next,
			Reason:        ReasonOrder,
		}
		if err := appendMovement(ctx, tx, &mv); err != nil {
			return nil, nil, err
		}
		movements = append(movements, mv)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return o, movements, nil
}

// CancelOrder is idempotent. The order row is locked before the status check,
// so of two racing cancels exactly one restocks; the other sees cancelled and
// returns a no-op. Restocking writes one movement per distinct product, in
// ascending product id, and the status flips only after every restock.
func (r *Repo) CancelOrder(ctx context.Context, orderID int64) (*Order, []StockMovement, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{}
	err = tx.QueryRow(ctx, `
		SELECT id, customer_name, customer_id, status, created_at
		FROM orders WHERE id = $1
		FOR UPDATE`, orderID).Scan(&o.ID, &o.CustomerName, &o.CustomerID, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if o.Items, err = loadItems(ctx, tx, o.ID); err != nil {
		return nil, nil, err
	}

	if o.Status == StatusCancelled {
		return o, nil, tx.Commit(ctx) // already cancelled: no restock, no movements
	}

	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	ids = distinctSortedIDs(ids)
	locked, err := lockProducts(ctx, tx, ids)
	if err != nil {
		return nil, nil, err
	}

	sums := sumByProduct(o.Items)
	movements := make([]StockMovement, 0, len(ids))
	for _, pid := range ids {
		p, ok := locked[pid]
		if !ok {
			return nil, nil, &ConsistencyError{OrderID: o.ID, ProductID: pid}
		}
		prev, next, err := adjustLocked(ctx, tx, p, sums[pid])
		if err != nil {
			return nil, nil, err
		}
		mv := StockMovement{
			ProductID:     pid,
			OrderID:       &o.ID,
			PreviousStock: prev,
			Delta:         sums[pid],
			NewStock:      next,
			Reason:        ReasonOrder,
		}
		if err := appendMovement(ctx, tx, &mv); err != nil {
			return nil, nil, err
		}
		movements = append(movements, mv)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, o.ID, StatusCancelled); err != nil {
		return nil, nil, fmt.Errorf("update order status: %w", err)
	}
	o.Status = StatusCancelled

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return o, movements, nil
}

// BulkAdjustStock applies manual deltas as one all-or-nothing batch: lock all
// rows once, validate every pair against the locked stock, then apply. A batch
// naming the same product twice is validated pair-by-pair and applied
// sequentially, so previous/new stock chain correctly in the ledger.
func (r *Repo) BulkAdjustStock(ctx context.Context, adjs []Adjustment) ([]Product, []StockMovement, error) {
	if len(adjs) == 0 {
		return nil, nil, &ValidationError{Msg: "no stock adjustments provided"}
	}
	ids := make([]int64, 0, len(adjs))
	for _, a := range adjs {
		if a.ProductID <= 0 {
			return nil, nil, &ValidationError{Msg: "adjustments need a product id"}
		}
		ids = append(ids, a.ProductID)
	}
	ids = distinctSortedIDs(ids)

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := lockProducts(ctx, tx, ids)
	if err != nil {
		return nil, nil, err
	}
	if missing := missingIDs(ids, locked); len(missing) > 0 {
		return nil, nil, &ValidationError{Msg: "products not found", MissingProductIDs: missing}
	}

	// validation pass: nothing is mutated until every pair checks out
	for _, a := range adjs {
		p := locked[a.ProductID]
		if p.Stock+a.Delta < 0 {
			return nil, nil, &ValidationError{
				Msg:          "stock would become negative",
				ProductID:    p.ID,
				SKU:          p.SKU,
				CurrentStock: p.Stock,
				Delta:        a.Delta,
			}
		}
	}

	// apply pass
	movements := make([]StockMovement, 0, len(adjs))
	for _, a := range adjs {
		p := locked[a.ProductID]
		prev, next, err := adjustLocked(ctx, tx, p, a.Delta)
		if err != nil {
			var ins *InsufficientStockError
			if errors.As(err, &ins) {
				// duplicate pairs can pass per-pair validation yet drain the
				// product once chained; still a whole-batch failure
				return nil, nil, &ValidationError{
					Msg:          "stock would become negative",
					ProductID:    ins.ProductID,
					SKU:          ins.SKU,
					CurrentStock: ins.Stock,
					Delta:        a.Delta,
				}
			}
			return nil, nil, err
		}
		mv := StockMovement{
			ProductID:     p.ID,
			PreviousStock: prev,
			Delta:         a.Delta,
			NewStock:      next,
			Reason:        ReasonManual,
		}
		if err := appendMovement(ctx, tx, &mv); err != nil {
			return nil, nil, err
		}
		movements = append(movements, mv)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	products := make([]Product, 0, len(ids))
	for _, pid := range ids {
		products = append(products, *locked[pid])
	}
	return products, movements, nil
}

func missingIDs(requested []int64, locked map[int64]*Product) []int64 {
	var missing []int64
	for _, id := range distinctSortedIDs(requested) {
		if _, ok := locked[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func loadItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]OrderItem, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity
		FROM order_items WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
