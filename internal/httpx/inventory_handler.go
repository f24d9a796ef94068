package httpx

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/satriap/erp-inventory/internal/inventory"
	kafkax "github.com/satriap/erp-inventory/internal/kafka"
	"github.com/satriap/erp-inventory/internal/postgres"
	"github.com/satriap/erp-inventory/internal/redisx"
)

// Engine is the slice of the inventory repo this layer consumes. The engine
// owns locking and atomicity; this layer only parses requests, maps errors to
// statuses and retries lock contention with bounded backoff.
type Engine interface {
	CreateOrder(ctx context.Context, in inventory.CreateOrderInput) (*inventory.Order, []inventory.StockMovement, error)
	CancelOrder(ctx context.Context, orderID int64) (*inventory.Order, []inventory.StockMovement, error)
	BulkAdjustStock(ctx context.Context, adjs []inventory.Adjustment) ([]inventory.Product, []inventory.StockMovement, error)
	GetOrder(ctx context.Context, id int64) (*inventory.Order, error)
	GetProduct(ctx context.Context, id int64) (*inventory.Product, error)
	ListProducts(ctx context.Context) ([]inventory.Product, error)
	ListOrders(ctx context.Context) ([]inventory.Order, error)
	LowStock(ctx context.Context, threshold int) ([]inventory.Product, error)
	ListMovements(ctx context.Context, productID int64, limit int) ([]inventory.StockMovement, error)
	CreateProduct(ctx context.Context, p *inventory.Product) error
	CreateCustomer(ctx context.Context, c *inventory.Customer) error
}

type InventoryHandler struct {
	Engine            Engine
	OrderEvents       *kafkax.Producer // TopicOrderEvents
	MovementEvents    *kafkax.Producer // TopicStockMovements
	Redis             *redis.Client
	Log               *slog.Logger
	Service           string
	LowStockThreshold int
	RetryAttempts     int
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/orders/export", h.exportOrders)
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
	r.Get("/products/low_stock", h.lowStock)
	r.Get("/products/export", h.exportProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/movements", h.listMovements)
	r.Post("/products/bulk_adjust", h.bulkAdjust)
	r.Post("/customers", h.createCustomer)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *InventoryHandler) writeError(w http.ResponseWriter, err error) {
	var vErr *inventory.ValidationError
	var insErr *inventory.InsufficientStockError
	switch {
	case errors.Is(err, inventory.ErrOrderNotFound), errors.Is(err, inventory.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": vErr.Error(), "detail": vErr})
	case errors.As(err, &insErr):
		writeJSON(w, http.StatusConflict, map[string]any{"error": insErr.Error(), "detail": insErr})
	case postgres.IsTransient(err):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store busy, retry later"})
	default:
		if h.Log != nil {
			h.Log.Error("request failed", "err", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *InventoryHandler) retry(ctx context.Context, fn func(context.Context) error) error {
	attempts := h.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return postgres.WithRetry(ctx, attempts, 50*time.Millisecond, fn)
}

func (h *InventoryHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in inventory.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		order *inventory.Order
		movs  []inventory.StockMovement
	)
	err := h.retry(ctx, func(ctx context.Context) error {
		var err error
		order, movs, err = h.Engine.CreateOrder(ctx, in)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cacheOrderStatus(ctx, order.ID, order.Status)
	h.publishOrderEvent(r, inventory.EventOrderCreated, order.ID, inventory.OrderCreatedPayload{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Status:       order.Status,
		Items:        in.Items,
	})
	h.publishMovements(r, movs)

	writeJSON(w, http.StatusCreated, order)
}

func (h *InventoryHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		order *inventory.Order
		movs  []inventory.StockMovement
	)
	err = h.retry(ctx, func(ctx context.Context) error {
		var err error
		order, movs, err = h.Engine.CancelOrder(ctx, id)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cacheOrderStatus(ctx, order.ID, order.Status)
	restock := make([]inventory.ItemInput, 0, len(movs))
	for _, mv := range movs {
		restock = append(restock, inventory.ItemInput{ProductID: mv.ProductID, Quantity: mv.Delta})
	}
	h.publishOrderEvent(r, inventory.EventOrderCancelled, order.ID, inventory.OrderCancelledPayload{
		OrderID: order.ID,
		Restock: restock,
		NoOp:    len(movs) == 0,
	})
	h.publishMovements(r, movs)

	writeJSON(w, http.StatusOK, order)
}

func (h *InventoryHandler) bulkAdjust(w http.ResponseWriter, r *http.Request) {
	var adjs []inventory.Adjustment
	if err := json.NewDecoder(r.Body).Decode(&adjs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		products []inventory.Product
		movs     []inventory.StockMovement
	)
	err := h.retry(ctx, func(ctx context.Context) error {
		var err error
		products, movs, err = h.Engine.BulkAdjustStock(ctx, adjs)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.publishMovements(r, movs)
	writeJSON(w, http.StatusOK, products)
}

func (h *InventoryHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Engine.GetOrder(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *InventoryHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Engine.GetProduct(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Engine.ListProducts(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *InventoryHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.LowStockThreshold
	if s := r.URL.Query().Get("threshold"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			threshold = n
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Engine.LowStock(ctx, threshold)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threshold": threshold, "products": ps})
}

func (h *InventoryHandler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	movs, err := h.Engine.ListMovements(ctx, id, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movs)
}

func (h *InventoryHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p inventory.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if p.SKU == "" || p.Name == "" || p.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sku, name and non-negative stock required"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Engine.CreateProduct(ctx, &p); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *InventoryHandler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var c inventory.Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if c.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Engine.CreateCustomer(ctx, &c); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *InventoryHandler) exportProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ps, err := h.Engine.ListProducts(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "sku", "name", "stock"})
	for _, p := range ps {
		_ = cw.Write([]string{
			strconv.FormatInt(p.ID, 10), p.SKU, p.Name, strconv.Itoa(p.Stock),
		})
	}
	cw.Flush()
}

func (h *InventoryHandler) exportOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	os, err := h.Engine.ListOrders(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "customer_name", "customer_id", "status", "created_at"})
	for _, o := range os {
		cid := ""
		if o.CustomerID != nil {
			cid = strconv.FormatInt(*o.CustomerID, 10)
		}
		_ = cw.Write([]string{
			strconv.FormatInt(o.ID, 10), o.CustomerName, cid, string(o.Status),
			o.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *InventoryHandler) cacheOrderStatus(ctx context.Context, orderID int64, status inventory.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]inventory.Status{"status": status})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (h *InventoryHandler) publishOrderEvent(r *http.Request, eventType string, orderID int64, payload any) {
	if h.OrderEvents == nil {
		return
	}
	ev := inventory.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	h.OrderEvents.Publish(inventory.OrderKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// publishMovements emits one event per ledger row written, keyed by product id
// so each product's movement stream stays ordered.
func (h *InventoryHandler) publishMovements(r *http.Request, movs []inventory.StockMovement) {
	if h.MovementEvents == nil {
		return
	}
	trace := r.Header.Get("X-Request-Id")
	for _, mv := range movs {
		ev := inventory.Envelope{
			EventID:      uuid.NewString(),
			EventType:    inventory.EventStockMovementRecorded,
			EventVersion: 1,
			OccurredAt:   time.Now().UTC(),
			Producer:     h.Service,
			TraceID:      trace,
			Payload:      kafkax.MustMarshal(inventory.MovementPayload(mv)),
		}
		if mv.OrderID != nil {
			ev.CorrelationID = strconv.FormatInt(*mv.OrderID, 10)
		}
		h.MovementEvents.Publish(inventory.ProductKey(mv.ProductID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(inventory.EventStockMovementRecorded)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
}
