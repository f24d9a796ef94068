package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "POSTGRES_DSN", "REDIS_ADDR", "KAFKA_BROKERS", "SERVICE_NAME", "LOW_STOCK_THRESHOLD", "RETRY_ATTEMPTS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "erp-api", cfg.ServiceName)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")
	t.Setenv("RETRY_ATTEMPTS", "junk")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 12, cfg.LowStockThreshold)
	assert.Equal(t, 3, cfg.RetryAttempts) // unparsable falls back to default
}
