package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHECKOUT_TOKEN_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mock", cfg.Gateway.Processor)
	assert.Equal(t, uint64(1), cfg.Gateway.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Gateway.RetryBackoff)
	assert.Equal(t, "postgres", cfg.Settings.Source)
	assert.False(t, cfg.Settings.TestMode)
	assert.Equal(t, 30*time.Minute, cfg.Security.TokenTTL)
	assert.Equal(t, "order-outcomes", cfg.Kafka.Topic)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
}

func TestLoad_RequiresTokenSecret(t *testing.T) {
	t.Setenv("CHECKOUT_TOKEN_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	os.Unsetenv("CHECKOUT_TOKEN_SECRET")
	_, err = Load()
	require.Error(t, err)
}

func TestLoad_RejectsUnknownProcessor(t *testing.T) {
	t.Setenv("CHECKOUT_TOKEN_SECRET", "s")
	t.Setenv("GATEWAY_PROCESSOR", "paypal")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paypal")
}

func TestLoad_HTTPProcessorNeedsBaseURL(t *testing.T) {
	t.Setenv("CHECKOUT_TOKEN_SECRET", "s")
	t.Setenv("GATEWAY_PROCESSOR", "http")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("GATEWAY_BASE_URL", "https://processor.example")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://processor.example", cfg.Gateway.BaseURL)
}

func TestDatabase_DSN(t *testing.T) {
	d := Database{Host: "db", Port: "5432", Name: "orders", Username: "app", Password: "p@ss", Schema: "public"}
	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://app:p%40ss@db:5432/orders")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "search_path=public")
}

func TestLoad_GracePeriodMustOutlastCharge(t *testing.T) {
	t.Setenv("CHECKOUT_TOKEN_SECRET", "s")
	t.Setenv("GATEWAY_REQUEST_TIMEOUT", "30s")
	t.Setenv("RECONCILE_GRACE_PERIOD", "45s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECONCILE_GRACE_PERIOD")

	t.Setenv("RECONCILE_GRACE_PERIOD", "2m")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute-cfg.Gateway.ChargeWindow(), cfg.StaleAfter())
	assert.Positive(t, cfg.StaleAfter())
}

func TestLoad_SettleWindow(t *testing.T) {
	t.Setenv("CHECKOUT_TOKEN_SECRET", "s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Worker.SettleWindow)

	t.Setenv("GATEWAY_PROCESSOR", "stripe")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Worker.SettleWindow)

	t.Setenv("RECONCILE_SETTLE_WINDOW", "10m")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Worker.SettleWindow)

	t.Setenv("RECONCILE_SETTLE_WINDOW", "-1m")
	_, err = Load()
	require.Error(t, err)
}
