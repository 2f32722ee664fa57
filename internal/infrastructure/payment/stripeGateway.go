package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

const testPaymentMethod = "pm_card_visa"

// StripeGateway charges through PaymentIntents. The secret from the
// settings store is the Stripe secret key, applied per request so a
// rotated key takes effect on the next charge.
type StripeGateway struct {
	backend stripe.Backend
}

// NewStripeGateway uses the Stripe API, or baseURL when non-empty.
// SDK-level retries are disabled; the caller owns the retry policy.
func NewStripeGateway(baseURL string, timeout time.Duration) *StripeGateway {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}
	return &StripeGateway{backend: stripe.GetBackendWithConfig(stripe.APIBackend, cfg)}
}

func (g *StripeGateway) client(creds domain.GatewayCredentials) *paymentintent.Client {
	return &paymentintent.Client{B: g.backend, Key: creds.Secret}
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	pm := req.PaymentMethod
	if pm == "" && req.Credentials.TestMode {
		pm = testPaymentMethod
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount.MinorUnits()),
		Currency: stripe.String(strings.ToLower(req.Amount.Currency)),
		Confirm:  stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if pm != "" {
		params.PaymentMethod = stripe.String(pm)
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.OrderID.String())
	params.AddMetadata("order_id", req.OrderID.String())

	pi, err := g.client(req.Credentials).New(params)
	if err != nil {
		return classifyStripeError(err)
	}
	return intentResponse(pi)
}

func (g *StripeGateway) CheckStatus(ctx context.Context, orderID uuid.UUID, creds domain.GatewayCredentials) (StatusResult, error) {
	params := &stripe.PaymentIntentSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("metadata['order_id']:'%s'", orderID),
			Context: ctx,
		},
	}
	iter := g.client(creds).Search(params)

	var found *stripe.PaymentIntent
	for iter.Next() {
		pi := iter.PaymentIntent()
		if found == nil || pi.Status == stripe.PaymentIntentStatusSucceeded {
			found = pi
		}
	}
	if err := iter.Err(); err != nil {
		_, cerr := classifyStripeError(err)
		if cerr == nil {
			cerr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return StatusResult{}, cerr
	}
	if found == nil {
		return StatusResult{Found: false}, nil
	}

	resp, err := intentResponse(found)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Found: true, Response: resp}, nil
}

func intentResponse(pi *stripe.PaymentIntent) (ChargeResponse, error) {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return ChargeResponse{Success: true, TransactionID: pi.ID, Status: string(pi.Status)}, nil
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		reason := string(pi.Status)
		if pi.LastPaymentError != nil {
			reason = declineReason(pi.LastPaymentError)
		}
		return ChargeResponse{TransactionID: pi.ID, Status: string(pi.Status), Reason: reason}, nil
	default:
		// processing, requires_action: outcome not settled yet
		return ChargeResponse{}, fmt.Errorf("%w: payment intent %s is %s", ErrUnavailable, pi.ID, pi.Status)
	}
}

func classifyStripeError(err error) (ChargeResponse, error) {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return ChargeResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		return ChargeResponse{Status: "declined", Reason: declineReason(se)}, nil
	case se.HTTPStatusCode == http.StatusUnauthorized || se.HTTPStatusCode == http.StatusForbidden:
		return ChargeResponse{}, fmt.Errorf("%w: %s", ErrCredentialsRejected, se.Msg)
	case se.HTTPStatusCode == 0 || retryableStatus(se.HTTPStatusCode) || se.Type == stripe.ErrorTypeAPI:
		return ChargeResponse{}, fmt.Errorf("%w: %s", ErrUnavailable, se.Msg)
	default:
		return ChargeResponse{Status: "declined", Reason: firstNonEmpty(string(se.Code), se.Msg)}, nil
	}
}

func declineReason(se *stripe.Error) string {
	return firstNonEmpty(string(se.DeclineCode), string(se.Code), se.Msg, "card_declined")
}
