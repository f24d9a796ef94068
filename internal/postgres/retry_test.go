package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
		assert.True(t, IsTransient(err), "code %s", code)
	}

	assert.False(t, IsTransient(&pgconn.PgError{Code: "23505"})) // unique violation
	assert.False(t, IsTransient(errors.New("not enough stock")))
	assert.False(t, IsTransient(nil))
}

func TestWithRetryRecoversFromContention(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "55P03"}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnBusinessError(t *testing.T) {
	wantErr := errors.New("validation failed")
	calls := 0
	err := WithRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestWithRetryGivesUpEventually(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, calls)
}
