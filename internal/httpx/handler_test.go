package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriap/erp-inventory/internal/inventory"
)

// stubEngine returns canned values; the real engine is covered by the
// integration tests in internal/inventory.
type stubEngine struct {
	order     *inventory.Order
	products  []inventory.Product
	movements []inventory.StockMovement
	err       error
}

func (s *stubEngine) CreateOrder(context.Context, inventory.CreateOrderInput) (*inventory.Order, []inventory.StockMovement, error) {
	return s.order, s.movements, s.err
}
func (s *stubEngine) CancelOrder(context.Context, int64) (*inventory.Order, []inventory.StockMovement, error) {
	return s.order, s.movements, s.err
}
func (s *stubEngine) BulkAdjustStock(context.Context, []inventory.Adjustment) ([]inventory.Product, []inventory.StockMovement, error) {
	return s.products, s.movements, s.err
}
func (s *stubEngine) GetOrder(context.Context, int64) (*inventory.Order, error) {
	return s.order, s.err
}
func (s *stubEngine) GetProduct(context.Context, int64) (*inventory.Product, error) {
	if len(s.products) == 0 {
		return nil, s.err
	}
	return &s.products[0], s.err
}
func (s *stubEngine) ListProducts(context.Context) ([]inventory.Product, error) {
	return s.products, s.err
}
func (s *stubEngine) ListOrders(context.Context) ([]inventory.Order, error) {
	if s.order == nil {
		return nil, s.err
	}
	return []inventory.Order{*s.order}, s.err
}
func (s *stubEngine) LowStock(context.Context, int) ([]inventory.Product, error) {
	return s.products, s.err
}
func (s *stubEngine) ListMovements(context.Context, int64, int) ([]inventory.StockMovement, error) {
	return s.movements, s.err
}
func (s *stubEngine) CreateProduct(_ context.Context, p *inventory.Product) error {
	p.ID = 1
	return s.err
}
func (s *stubEngine) CreateCustomer(_ context.Context, c *inventory.Customer) error {
	c.ID = 1
	return s.err
}

func newTestHandler(e Engine) http.Handler {
	r := NewRouter()
	h := &InventoryHandler{Engine: e, Service: "test", LowStockThreshold: 5, RetryAttempts: 1}
	h.Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateOrderResponds201(t *testing.T) {
	oid := int64(7)
	stub := &stubEngine{
		order: &inventory.Order{
			ID: oid, CustomerName: "Test Customer", Status: inventory.StatusConfirmed,
			CreatedAt: time.Now(),
			Items:     []inventory.OrderItem{{ID: 1, OrderID: oid, ProductID: 3, Quantity: 2}},
		},
	}
	w := do(t, newTestHandler(stub), http.MethodPost, "/orders",
		`{"customer_name":"Test Customer","items":[{"product_id":3,"quantity":2}]}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var got inventory.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, oid, got.ID)
	assert.Equal(t, inventory.StatusConfirmed, got.Status)
}

func TestCreateOrderInsufficientStockResponds409(t *testing.T) {
	stub := &stubEngine{err: &inventory.InsufficientStockError{ProductID: 3, SKU: "P003", Stock: 1, Requested: 5}}
	w := do(t, newTestHandler(stub), http.MethodPost, "/orders",
		`{"customer_name":"Test Customer","items":[{"product_id":3,"quantity":5}]}`)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "P003")
	assert.Contains(t, w.Body.String(), `"requested":5`)
}

func TestCreateOrderValidationResponds400(t *testing.T) {
	stub := &stubEngine{err: &inventory.ValidationError{Msg: "order has no items"}}
	w := do(t, newTestHandler(stub), http.MethodPost, "/orders", `{"customer_name":"Test Customer","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelOrderNotFoundResponds404(t *testing.T) {
	stub := &stubEngine{err: inventory.ErrOrderNotFound}
	w := do(t, newTestHandler(stub), http.MethodPost, "/orders/99/cancel", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrderBadIDResponds400(t *testing.T) {
	w := do(t, newTestHandler(&stubEngine{}), http.MethodPost, "/orders/abc/cancel", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkAdjustUnknownProductsResponds400(t *testing.T) {
	stub := &stubEngine{err: &inventory.ValidationError{Msg: "products not found", MissingProductIDs: []int64{4, 9}}}
	w := do(t, newTestHandler(stub), http.MethodPost, "/products/bulk_adjust",
		`[{"product_id":4,"delta":1},{"product_id":9,"delta":-1}]`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"missing_product_ids":[4,9]`)
}

func TestLowStockThresholdOverride(t *testing.T) {
	stub := &stubEngine{products: []inventory.Product{{ID: 1, SKU: "P001", Stock: 2}}}
	w := do(t, newTestHandler(stub), http.MethodGet, "/products/low_stock?threshold=3", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Threshold int                 `json:"threshold"`
		Products  []inventory.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Threshold)
	assert.Len(t, body.Products, 1)
}

func TestExportProductsCSV(t *testing.T) {
	stub := &stubEngine{products: []inventory.Product{
		{ID: 2, SKU: "P002", Name: "Widget B", Stock: 5},
		{ID: 1, SKU: "P001", Name: "Widget A", Stock: 10},
	}}
	w := do(t, newTestHandler(stub), http.MethodGet, "/products/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,sku,name,stock", lines[0])
	assert.Equal(t, "1,P001,Widget A,10", lines[1]) // sorted by id
	assert.Equal(t, "2,P002,Widget B,5", lines[2])
}

func TestExportOrdersCSV(t *testing.T) {
	cid := int64(4)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	stub := &stubEngine{order: &inventory.Order{
		ID: 9, CustomerName: "Test Customer", CustomerID: &cid,
		Status: inventory.StatusCancelled, CreatedAt: created,
	}}
	w := do(t, newTestHandler(stub), http.MethodGet, "/orders/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,customer_name,customer_id,status,created_at", lines[0])
	assert.Equal(t, "9,Test Customer,4,cancelled,2025-03-01T10:00:00Z", lines[1])
}

func TestCreateProductValidatesInput(t *testing.T) {
	w := do(t, newTestHandler(&stubEngine{}), http.MethodPost, "/products", `{"sku":"","name":"x","stock":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, newTestHandler(&stubEngine{}), http.MethodPost, "/products", `{"sku":"P001","name":"Widget","stock":3}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}
