package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORDER_NUMBER_BASE", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(2000), cfg.Checkout.OrderNumberBase)
	assert.Equal(t, 30*time.Second, cfg.Checkout.PlacementTimeout)
	assert.True(t, cfg.Shipping.InsideHubRate.Equal(decimal.NewFromInt(80)))
	assert.True(t, cfg.Shipping.FreeShippingMin.IsZero())
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ORDER_NUMBER_BASE", "5000")
	t.Setenv("SHIPPING_OUTSIDE_HUB", "120.50")
	t.Setenv("ORDER_COOLDOWN_ENABLED", "true")
	t.Setenv("ORDER_COOLDOWN_MINUTES", "15")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CHECKOUT_PLACEMENT_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(5000), cfg.Checkout.OrderNumberBase)
	assert.True(t, cfg.Shipping.OutsideHubRate.Equal(decimal.RequireFromString("120.50")))
	assert.True(t, cfg.Guard.CooldownEnabled)
	assert.Equal(t, 15, cfg.Guard.CooldownMinutes)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Checkout.PlacementTimeout)
}

func TestLoadRejectsZeroAttempts(t *testing.T) {
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
}
