package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the four inventory entities plus customers. stock has a CHECK
// so a bug in the engine can never commit a negative value; stock_movements is
// append-only by convention (no code path updates or deletes it).
const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL,
	email   TEXT NOT NULL DEFAULT '',
	phone   TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
	id         BIGSERIAL PRIMARY KEY,
	sku        TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	stock      INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	id            BIGSERIAL PRIMARY KEY,
	customer_name TEXT NOT NULL,
	customer_id   BIGINT REFERENCES customers(id) ON DELETE SET NULL,
	status        TEXT NOT NULL DEFAULT 'confirmed',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
	id         BIGSERIAL PRIMARY KEY,
	order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id BIGINT NOT NULL REFERENCES products(id),
	quantity   INT NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS stock_movements (
	id             BIGSERIAL PRIMARY KEY,
	product_id     BIGINT NOT NULL REFERENCES products(id),
	order_id       BIGINT REFERENCES orders(id) ON DELETE SET NULL,
	previous_stock INT NOT NULL,
	delta          INT NOT NULL,
	new_stock      INT NOT NULL,
	reason         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_movements_product ON stock_movements(product_id);
CREATE INDEX IF NOT EXISTS idx_movements_order ON stock_movements(order_id);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
