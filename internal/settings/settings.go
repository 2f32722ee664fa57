// Package settings holds the gateway credentials. Stores are read fresh on
// every call so a rotated key is visible to the next processing cycle.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"custom-gateway/internal/domain"
)

const (
	KeyAPIKey   = "custom_gateway_api_key"
	KeySecret   = "custom_gateway_secret"
	KeyTestMode = "custom_gateway_test_mode"
)

// shortKeys are the unprefixed names accepted when reading credentials,
// e.g. from a secret written by hand. The field id wins when both are set.
var shortKeys = map[string]string{
	KeyAPIKey:   "api_key",
	KeySecret:   "secret",
	KeyTestMode: "test_mode",
}

func lookup(values map[string]string, key string) string {
	if v := values[key]; v != "" {
		return v
	}
	return values[shortKeys[key]]
}

type Store interface {
	Credentials(ctx context.Context) (domain.GatewayCredentials, error)
}

// Writer is implemented by stores the admin API can update.
type Writer interface {
	Values(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
	FieldCheckbox FieldType = "checkbox"
)

// Field describes one gateway setting as shown on the admin settings page.
type Field struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"desc"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
}

func (f Field) Sensitive() bool {
	return f.Type == FieldPassword
}

var fields = []Field{
	{ID: KeyAPIKey, Name: "API Key", Description: "Enter the API key for your custom gateway", Type: FieldText, Required: true},
	{ID: KeySecret, Name: "Secret Key", Description: "Enter the secret key for your custom gateway", Type: FieldPassword, Required: true},
	{ID: KeyTestMode, Name: "Test Mode", Description: "Send charges to the processor's sandbox", Type: FieldCheckbox},
}

// Fields returns the settings descriptors in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

func lookupField(id string) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks an admin write. Unknown keys and non-boolean test mode
// values are rejected; empty required values are allowed so an operator
// can clear a revoked key.
func Validate(values map[string]string) error {
	for k, v := range values {
		f, ok := lookupField(k)
		if !ok {
			return domain.Validation(k, "unknown setting")
		}
		if f.Type == FieldCheckbox && v != "" {
			if _, err := strconv.ParseBool(v); err != nil {
				return domain.Validation(k, "must be true or false")
			}
		}
	}
	return nil
}

// Mask stands in for a stored sensitive value.
const Mask = "********"

// Redact replaces sensitive values that are set with Mask.
func Redact(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if f, ok := lookupField(k); ok && f.Sensitive() && v != "" {
			v = Mask
		}
		out[k] = v
	}
	return out
}

func credentialsFromValues(values map[string]string) (domain.GatewayCredentials, error) {
	creds := domain.GatewayCredentials{
		APIKey: lookup(values, KeyAPIKey),
		Secret: lookup(values, KeySecret),
	}
	if v := lookup(values, KeyTestMode); v != "" {
		testMode, err := strconv.ParseBool(v)
		if err != nil {
			return domain.GatewayCredentials{}, fmt.Errorf("parse %s: %w", KeyTestMode, err)
		}
		creds.TestMode = testMode
	}
	return creds, nil
}

// Static serves fixed credentials, typically from the environment.
type Static struct {
	creds domain.GatewayCredentials
}

func NewStatic(creds domain.GatewayCredentials) *Static {
	return &Static{creds: creds}
}

func (s *Static) Credentials(context.Context) (domain.GatewayCredentials, error) {
	return s.creds, nil
}
