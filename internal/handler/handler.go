package handler

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/service"
	"custom-gateway/internal/settings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

//go:embed schema/checkout.json
var checkoutSchema string

type CheckoutService interface {
	Checkout(ctx context.Context, sub service.Submission) (service.CheckoutResult, error)
}

type TokenIssuer interface {
	Issue() (string, time.Time, error)
}

type OrderReader interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindTransaction(ctx context.Context, orderID uuid.UUID) (*domain.TransactionRecord, error)
}

type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Handler struct {
	checkout CheckoutService
	tokens   TokenIssuer
	orders   OrderReader
	settings settings.Writer
	health   HealthChecker
	logger   *zap.Logger
	contract *gojsonschema.Schema
}

// New wires the HTTP handlers. settingsWriter and health may be nil when
// settings live outside Postgres or no database is configured.
func New(checkout CheckoutService, tokens TokenIssuer, orders OrderReader, settingsWriter settings.Writer, health HealthChecker, logger *zap.Logger) (*Handler, error) {
	contract, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(checkoutSchema))
	if err != nil {
		return nil, fmt.Errorf("compile checkout schema: %w", err)
	}
	return &Handler{
		checkout: checkout,
		tokens:   tokens,
		orders:   orders,
		settings: settingsWriter,
		health:   health,
		logger:   logger,
		contract: contract,
	}, nil
}

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	AdminToken     string
	Metrics        http.Handler
}

func (h *Handler) Router(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(RequestID())
	r.Use(RequestLogger(h.logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", h.Health)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api/v1")
	api.GET("/gateways", h.ListGateways)
	api.GET("/orders/:id", h.GetOrder)

	limiter := NewRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst, 10*time.Minute)
	checkout := api.Group("/checkout", limiter.Middleware())
	checkout.POST("", h.Checkout)
	checkout.POST("/token", h.IssueToken)

	admin := api.Group("/admin", AdminAuth(cfg.AdminToken))
	admin.GET("/settings", h.GetSettings)
	admin.PUT("/settings", h.UpdateSettings)

	return r
}

func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "up"})
		return
	}
	stats := h.health.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
