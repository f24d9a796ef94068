package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistinctSortedIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 7}, distinctSortedIDs([]int64{7, 2, 1, 2, 7}))
	assert.Equal(t, []int64{3}, distinctSortedIDs([]int64{3, 3, 3}))
	assert.Empty(t, distinctSortedIDs(nil))
}

func TestSumByProduct(t *testing.T) {
	items := []OrderItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 5},
		{ProductID: 1, Quantity: 3},
	}
	sums := sumByProduct(items)
	assert.Equal(t, map[int64]int{1: 5, 2: 5}, sums)
}

func TestMissingIDs(t *testing.T) {
	locked := map[int64]*Product{1: {}, 3: {}}
	assert.Equal(t, []int64{2, 4}, missingIDs([]int64{1, 2, 3, 4, 2}, locked))
	assert.Empty(t, missingIDs([]int64{1, 3}, locked))
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{ProductID: 7, SKU: "P001", Stock: 2, Requested: 5}
	assert.Equal(t, "not enough stock for product P001: have 2, requested 5", err.Error())

	// survives wrapping
	wrapped := fmt.Errorf("create order: %w", err)
	var ins *InsufficientStockError
	assert.True(t, errors.As(wrapped, &ins))
	assert.Equal(t, int64(7), ins.ProductID)
}

func TestValidationErrorMessages(t *testing.T) {
	assert.Equal(t, "order has no items", (&ValidationError{Msg: "order has no items"}).Error())

	missing := &ValidationError{Msg: "products not found", MissingProductIDs: []int64{4, 9}}
	assert.Equal(t, "products not found: [4 9]", missing.Error())

	negative := &ValidationError{Msg: "stock would become negative", ProductID: 3, SKU: "P003", CurrentStock: 10, Delta: -100}
	assert.Contains(t, negative.Error(), "P003")
	assert.Contains(t, negative.Error(), "delta -100")
}

func TestConsistencyErrorMessage(t *testing.T) {
	err := &ConsistencyError{OrderID: 12, ProductID: 4}
	assert.Equal(t, "order 12 references missing product 4", err.Error())
}
