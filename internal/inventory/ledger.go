package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// appendMovement writes one ledger row. The ledger is append-only: nothing in
// this package (or the schema) updates or deletes stock_movements.
func appendMovement(ctx context.Context, tx pgx.Tx, mv *StockMovement) error {
	return tx.QueryRow(ctx, `
		INSERT INTO stock_movements (product_id, order_id, previous_stock, delta, new_stock, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		mv.ProductID, mv.OrderID, mv.PreviousStock, mv.Delta, mv.NewStock, mv.Reason,
	).Scan(&mv.ID, &mv.CreatedAt)
}

// ListMovements returns a product's ledger in creation order. limit <= 0 means
// no limit.
func (r *Repo) ListMovements(ctx context.Context, productID int64, limit int) ([]StockMovement, error) {
	q := `
		SELECT id, product_id, order_id, previous_stock, delta, new_stock, reason, created_at
		FROM stock_movements WHERE product_id = $1
		ORDER BY id`
	args := []any{productID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListMovementsByOrder returns every ledger row linked to an order.
func (r *Repo) ListMovementsByOrder(ctx context.Context, orderID int64) ([]StockMovement, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, order_id, previous_stock, delta, new_stock, reason, created_at
		FROM stock_movements WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]StockMovement, error) {
	var out []StockMovement
	for rows.Next() {
		var mv StockMovement
		if err := rows.Scan(&mv.ID, &mv.ProductID, &mv.OrderID, &mv.PreviousStock, &mv.Delta, &mv.NewStock, &mv.Reason, &mv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}
