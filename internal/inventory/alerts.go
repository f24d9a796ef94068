package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/satriap/erp-inventory/internal/redisx"
)

// Alerts consumes the stock-movement stream and keeps the Redis low-stock set
// current: a product enters the set when a movement leaves it at or under the
// threshold and leaves the set once restocked above it.
type Alerts struct {
	Redis     *redis.Client
	Log       *slog.Logger
	Threshold int
}

// HandleMovement is wired as the consumer handler for TopicStockMovements.
func (a *Alerts) HandleMovement(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != EventStockMovementRecorded {
		return nil // ignore
	}

	// dedup by event_id; replays must not flap the set or re-log
	dkey := fmt.Sprintf(redisx.KeyDedup, "alerts", env.EventID)
	if ok, _ := redisx.Exists(ctx, a.Redis, dkey); ok {
		return nil
	}
	_ = a.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	var p StockMovementPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}

	member := strconv.FormatInt(p.ProductID, 10)
	if p.NewStock <= a.Threshold {
		if err := a.Redis.SAdd(ctx, redisx.KeyLowStock, member).Err(); err != nil {
			return err
		}
		a.Log.Warn("low stock",
			"product_id", p.ProductID,
			"stock", p.NewStock,
			"delta", p.Delta,
			"reason", p.Reason,
		)
		return nil
	}
	return a.Redis.SRem(ctx, redisx.KeyLowStock, member).Err()
}
