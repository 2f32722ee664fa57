package handler

import (
	"net/http"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/settings"

	"github.com/gin-gonic/gin"
)

type gatewayDescriptor struct {
	ID            string `json:"id"`
	AdminLabel    string `json:"admin_label"`
	CheckoutLabel string `json:"checkout_label"`
}

var registeredGateways = []gatewayDescriptor{{
	ID:            domain.GatewayID,
	AdminLabel:    "Custom Gateway",
	CheckoutLabel: "Pay with Custom Gateway",
}}

// ListGateways handles GET /api/v1/gateways.
func (h *Handler) ListGateways(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"gateways": registeredGateways})
}

func (h *Handler) GetSettings(c *gin.Context) {
	if h.settings == nil {
		writeError(c, h.logger, domain.Configuration("settings are managed outside this service"), nil)
		return
	}
	values, err := h.settings.Values(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": settings.Fields(), "values": settings.Redact(values)})
}

// UpdateSettings handles PUT /api/v1/admin/settings. A masked value sent
// back unchanged leaves the stored secret alone.
func (h *Handler) UpdateSettings(c *gin.Context) {
	if h.settings == nil {
		writeError(c, h.logger, domain.Configuration("settings are managed outside this service"), nil)
		return
	}

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		writeError(c, h.logger, domain.Validation("", "body must be an object of string values"), nil)
		return
	}
	for k, v := range values {
		if v == settings.Mask {
			delete(values, k)
		}
	}

	ctx := c.Request.Context()
	if err := h.settings.Save(ctx, values); err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	stored, err := h.settings.Values(ctx)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": settings.Fields(), "values": settings.Redact(stored)})
}
