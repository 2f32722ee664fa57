package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransition(t *testing.T) {
	assert.True(t, OrderPending.CanTransition(OrderComplete))
	assert.True(t, OrderPending.CanTransition(OrderFailed))
	assert.False(t, OrderPending.CanTransition(OrderPending))
	assert.False(t, OrderComplete.CanTransition(OrderFailed))
	assert.False(t, OrderFailed.CanTransition(OrderComplete))
	assert.False(t, OrderComplete.CanTransition(OrderComplete))
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("49.99", "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, "49.99", m.Value.String())
	assert.Equal(t, int64(4999), m.MinorUnits())
	assert.Equal(t, "49.99 USD", m.String())

	jpy, err := ParseMoney("1200", "JPY")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), jpy.MinorUnits())

	trailing, err := ParseMoney("10.500", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1050), trailing.MinorUnits())

	kwd, err := ParseMoney("1.005", "KWD")
	require.NoError(t, err)
	assert.Equal(t, int64(1005), kwd.MinorUnits())

	largest, err := ParseMoney("999999999999.99", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(99999999999999), largest.MinorUnits())

	cases := []struct {
		amount, currency, field string
	}{
		{"abc", "USD", "amount"},
		{"", "USD", "amount"},
		{"0", "USD", "amount"},
		{"-5.00", "USD", "amount"},
		{"0.001", "USD", "amount"},
		{"10.005", "USD", "amount"},
		{"12.5", "JPY", "amount"},
		{"1e30", "USD", "amount"},
		{"1000000000000", "USD", "amount"},
		{"10.00", "US", "currency"},
		{"10.00", "U$D", "currency"},
	}
	for _, c := range cases {
		_, err := ParseMoney(c.amount, c.currency)
		require.Error(t, err, "%s %s", c.amount, c.currency)
		assert.ErrorIs(t, err, ErrValidation)
		var de *Error
		require.True(t, errors.As(err, &de))
		assert.Equal(t, c.field, de.Field)
	}
}

func TestNewPendingOrder(t *testing.T) {
	now := time.Now()
	m, _ := ParseMoney("10", "EUR")
	o := NewPendingOrder(m, "a@b.co", nil, nil, now)
	assert.Equal(t, OrderPending, o.Status)
	assert.Equal(t, GatewayID, o.Gateway)
	assert.Equal(t, uuid.Nil, o.ID)
	assert.NotEmpty(t, o.PurchaseKey)
	assert.NotNil(t, o.Cart)
	assert.Equal(t, now, o.CreatedAt)
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Declined("insufficient_funds"))
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.NotErrorIs(t, err, ErrTransientGateway)
	assert.Contains(t, err.Error(), "insufficient_funds")

	cause := errors.New("dial tcp: timeout")
	tg := TransientGateway(cause)
	assert.ErrorIs(t, tg, ErrTransientGateway)
	assert.ErrorIs(t, tg, cause)

	id := uuid.New()
	assert.ErrorIs(t, NotFound(id), ErrNotFound)
	assert.ErrorIs(t, InvalidTransition(id, OrderComplete, OrderFailed), ErrInvalidTransition)
}

func TestGatewayCredentials_RedactsSecret(t *testing.T) {
	c := GatewayCredentials{APIKey: "pk_live_123456", Secret: "sk_live_supersecret", TestMode: true}
	assert.True(t, c.Complete())
	s := fmt.Sprintf("%v %+v %#v", c, c, c)
	assert.NotContains(t, s, "supersecret")
	assert.Contains(t, s, "3456")

	assert.False(t, GatewayCredentials{APIKey: "k"}.Complete())
	assert.False(t, GatewayCredentials{Secret: "s"}.Complete())
}
