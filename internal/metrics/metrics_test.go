package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCharge("success", 20*time.Millisecond)
	m.ObserveCharge("unavailable", time.Second)
	m.ObserveCharge("unavailable", time.Second)
	m.OrderOutcome("complete")
	m.Reconciled("completed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChargeAttempts.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChargeAttempts.WithLabelValues("unavailable")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ChargeDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderOutcomes.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("completed")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.OrderOutcome("failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `custom_gateway_order_outcomes_total{status="failed"} 1`)
}
