package config

import (
	"fmt"
	"net/url"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env  string `envconfig:"APP_ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	Database Database
	Gateway  Gateway
	Settings Settings
	Security Security
	Worker   Worker
	Kafka    Kafka
	HTTP     HTTP

	TracingEnabled bool `envconfig:"TRACING_ENABLED" default:"false"`
}

type Database struct {
	Host     string `envconfig:"BLUEPRINT_DB_HOST" default:"localhost"`
	Port     string `envconfig:"BLUEPRINT_DB_PORT" default:"5432"`
	Name     string `envconfig:"BLUEPRINT_DB_DATABASE" default:"orders"`
	Username string `envconfig:"BLUEPRINT_DB_USERNAME" default:"postgres"`
	Password string `envconfig:"BLUEPRINT_DB_PASSWORD"`
	Schema   string `envconfig:"BLUEPRINT_DB_SCHEMA" default:"public"`
}

// DSN builds the pgx connection string.
func (d Database) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.Username, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	q.Set("search_path", d.Schema)
	u.RawQuery = q.Encode()
	return u.String()
}

type Gateway struct {
	// Processor selects the charge backend: mock, http or stripe.
	Processor      string        `envconfig:"GATEWAY_PROCESSOR" default:"mock"`
	BaseURL        string        `envconfig:"GATEWAY_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"GATEWAY_REQUEST_TIMEOUT" default:"10s"`
	MaxRetries     uint64        `envconfig:"GATEWAY_MAX_RETRIES" default:"1"`
	RetryBackoff   time.Duration `envconfig:"GATEWAY_RETRY_BACKOFF" default:"500ms"`
	SuccessURL     string        `envconfig:"CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/checkout/success"`
	CheckoutURL    string        `envconfig:"CHECKOUT_URL" default:"http://localhost:3000/checkout"`
}

// ChargeWindow bounds how long a charge including retries may run.
// Reconciliation must not look at an order before this has elapsed.
func (g Gateway) ChargeWindow() time.Duration {
	attempts := time.Duration(g.MaxRetries + 1)
	return attempts*g.RequestTimeout + attempts*g.RetryBackoff*2
}

type Settings struct {
	// Source selects the credentials store: postgres, secretsmanager or env.
	Source      string `envconfig:"SETTINGS_SOURCE" default:"postgres"`
	SecretName  string `envconfig:"SETTINGS_SECRET_NAME" default:"custom-gateway/credentials"`
	AWSEndpoint string `envconfig:"AWS_ENDPOINT"`
	APIKey      string `envconfig:"GATEWAY_API_KEY"`
	Secret      string `envconfig:"GATEWAY_SECRET"`
	TestMode    bool   `envconfig:"GATEWAY_TEST_MODE" default:"false"`
	AdminToken  string `envconfig:"ADMIN_TOKEN"`
}

type Security struct {
	TokenSecret string        `envconfig:"CHECKOUT_TOKEN_SECRET" required:"true"`
	TokenTTL    time.Duration `envconfig:"CHECKOUT_TOKEN_TTL" default:"30m"`
}

// stripeSettleWindow covers the lag of Stripe's search index, which
// reconciliation reads.
const stripeSettleWindow = time.Hour

type Worker struct {
	Interval     time.Duration `envconfig:"RECONCILE_INTERVAL" default:"30s"`
	GracePeriod  time.Duration `envconfig:"RECONCILE_GRACE_PERIOD" default:"1m"`
	BatchSize    int           `envconfig:"RECONCILE_BATCH_SIZE" default:"100"`
	SettleWindow time.Duration `envconfig:"RECONCILE_SETTLE_WINDOW"`
}

// StaleAfter is the age from which checkout no longer charges a pending
// order itself and leaves it to reconciliation.
func (c *Config) StaleAfter() time.Duration {
	return c.Worker.GracePeriod - c.Gateway.ChargeWindow()
}

type Kafka struct {
	Brokers string `envconfig:"KAFKA_BROKERS"`
	Topic   string `envconfig:"KAFKA_OUTCOME_TOPIC" default:"order-outcomes"`
}

type HTTP struct {
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RateLimit      float64  `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
	RateBurst      int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Security.TokenSecret == "" {
		return nil, fmt.Errorf("CHECKOUT_TOKEN_SECRET must not be empty")
	}
	switch cfg.Gateway.Processor {
	case "mock", "http", "stripe":
	default:
		return nil, fmt.Errorf("unknown GATEWAY_PROCESSOR %q", cfg.Gateway.Processor)
	}
	if cfg.Gateway.Processor == "http" && cfg.Gateway.BaseURL == "" {
		return nil, fmt.Errorf("GATEWAY_BASE_URL is required for the http processor")
	}
	if cfg.Worker.GracePeriod <= cfg.Gateway.ChargeWindow() {
		return nil, fmt.Errorf("RECONCILE_GRACE_PERIOD (%s) must exceed the longest charge attempt (%s)",
			cfg.Worker.GracePeriod, cfg.Gateway.ChargeWindow())
	}
	if cfg.Worker.SettleWindow < 0 {
		return nil, fmt.Errorf("RECONCILE_SETTLE_WINDOW must not be negative")
	}
	if cfg.Worker.SettleWindow == 0 && cfg.Gateway.Processor == "stripe" {
		cfg.Worker.SettleWindow = stripeSettleWindow
	}
	switch cfg.Settings.Source {
	case "postgres", "secretsmanager", "env":
	default:
		return nil, fmt.Errorf("unknown SETTINGS_SOURCE %q", cfg.Settings.Source)
	}
	return &cfg, nil
}
