package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
)

type chargePayload struct {
	OrderID       string `json:"order_id"`
	Amount        string `json:"amount"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	Email         string `json:"email,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	TestMode      bool   `json:"test_mode"`
}

type errorPayload struct {
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// HTTPGateway talks to a JSON processor:
//
//	POST {base}/charges            charge, Idempotency-Key = order id
//	GET  {base}/charges/{order_id} reconciliation lookup
//
// Requests carry "Authorization: Bearer <secret>" and "X-Api-Key".
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	body, err := json.Marshal(chargePayload{
		OrderID:       req.OrderID.String(),
		Amount:        req.Amount.Value.String(),
		AmountMinor:   req.Amount.MinorUnits(),
		Currency:      req.Amount.Currency,
		Email:         req.Email,
		PaymentMethod: req.PaymentMethod,
		TestMode:      req.Credentials.TestMode,
	})
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("encode charge: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.OrderID.String())
	authorize(httpReq, req.Credentials)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("%w: read charge response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out ChargeResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return ChargeResponse{}, fmt.Errorf("%w: decode charge response: %v", ErrUnavailable, err)
		}
		if !out.Success && out.Reason == "" {
			out.Reason = firstNonEmpty(out.Status, "declined")
		}
		return out, nil
	case retryableStatus(resp.StatusCode):
		return ChargeResponse{}, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ChargeResponse{}, fmt.Errorf("%w: HTTP %d", ErrCredentialsRejected, resp.StatusCode)
	default:
		var e errorPayload
		_ = json.Unmarshal(raw, &e)
		return ChargeResponse{
			Status: "declined",
			Reason: firstNonEmpty(e.Reason, e.Error, strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))),
		}, nil
	}
}

func (g *HTTPGateway) CheckStatus(ctx context.Context, orderID uuid.UUID, creds domain.GatewayCredentials) (StatusResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/charges/"+orderID.String(), nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("build status request: %w", err)
	}
	authorize(httpReq, creds)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return StatusResult{Found: false}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out ChargeResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return StatusResult{}, fmt.Errorf("%w: decode status response: %v", ErrUnavailable, err)
		}
		return StatusResult{Found: true, Response: out}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return StatusResult{}, fmt.Errorf("%w: HTTP %d", ErrCredentialsRejected, resp.StatusCode)
	default:
		return StatusResult{}, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
}

func authorize(r *http.Request, creds domain.GatewayCredentials) {
	r.Header.Set("Authorization", "Bearer "+creds.Secret)
	r.Header.Set("X-Api-Key", creds.APIKey)
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
