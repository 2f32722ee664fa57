package handler

import (
	"errors"
	"net/http"

	"custom-gateway/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetOrder handles GET /api/v1/orders/:id. The transaction is null until
// the order completes.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, domain.Validation("id", "order id must be a UUID"), nil)
		return
	}

	ctx := c.Request.Context()
	order, err := h.orders.FindById(ctx, id)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}

	txn, err := h.orders.FindTransaction(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "transaction": txn})
}
