package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripeServer(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStripeGateway(srv.URL, time.Second)
}

func TestStripeChargeSucceeded(t *testing.T) {
	req := chargeRequest(t)
	req.Credentials.TestMode = true
	gw := stripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, req.OrderID.String(), r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "4999", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("confirm"))
		assert.Equal(t, testPaymentMethod, r.PostForm.Get("payment_method"))
		assert.Equal(t, req.OrderID.String(), r.PostForm.Get("metadata[order_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","object":"payment_intent","status":"succeeded"}`))
	})

	resp, err := gw.Charge(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ChargeResponse{Success: true, TransactionID: "pi_123", Status: "succeeded"}, resp)
}

func TestStripeCardErrorIsDecline(t *testing.T) {
	gw := stripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card has insufficient funds."}}`))
	})

	resp, err := gw.Charge(context.Background(), chargeRequest(t))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "insufficient_funds", resp.Reason)
}

func TestStripeErrorsClassified(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: 500, body: `{"error":{"type":"api_error","message":"boom"}}`, want: ErrUnavailable},
		{name: "bad key", status: 401, body: `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`, want: ErrCredentialsRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := stripeServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := gw.Charge(context.Background(), chargeRequest(t))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStripeProcessingIsUnsettled(t *testing.T) {
	gw := stripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_9","object":"payment_intent","status":"processing"}`))
	})
	_, err := gw.Charge(context.Background(), chargeRequest(t))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStripeCheckStatusSearchesByOrderID(t *testing.T) {
	req := chargeRequest(t)
	gw := stripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("query") == "metadata['order_id']:'"+req.OrderID.String()+"'" {
			w.Write([]byte(`{"object":"search_result","url":"/v1/payment_intents/search","has_more":false,"data":[{"id":"pi_123","object":"payment_intent","status":"succeeded"}]}`))
			return
		}
		w.Write([]byte(`{"object":"search_result","url":"/v1/payment_intents/search","has_more":false,"data":[]}`))
	})

	status, err := gw.CheckStatus(context.Background(), req.OrderID, req.Credentials)
	require.NoError(t, err)
	assert.True(t, status.Found)
	assert.Equal(t, "pi_123", status.Response.TransactionID)

	status, err = gw.CheckStatus(context.Background(), chargeRequest(t).OrderID, req.Credentials)
	require.NoError(t, err)
	assert.False(t, status.Found)
}
