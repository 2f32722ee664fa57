package domain

import "fmt"

// GatewayCredentials is loaded from the settings store for every
// processing cycle. String redacts the secret so the value is safe to
// pass to fmt or zap.Stringer.
type GatewayCredentials struct {
	APIKey   string
	Secret   string
	TestMode bool
}

// Complete reports whether both the api key and the secret are set.
func (c GatewayCredentials) Complete() bool {
	return c.APIKey != "" && c.Secret != ""
}

func (c GatewayCredentials) String() string {
	secret := ""
	if c.Secret != "" {
		secret = "[redacted]"
	}
	return fmt.Sprintf("GatewayCredentials{APIKey:%q Secret:%q TestMode:%t}", maskKey(c.APIKey), secret, c.TestMode)
}

func (c GatewayCredentials) GoString() string {
	return c.String()
}

func maskKey(k string) string {
	if len(k) <= 4 {
		return k
	}
	return "****" + k[len(k)-4:]
}
