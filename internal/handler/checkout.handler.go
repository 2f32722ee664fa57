package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const maxCheckoutBody = 1 << 20

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCheckoutBody))
	if err != nil {
		writeError(c, h.logger, domain.Validation("", "request body too large or unreadable"), nil)
		return
	}

	if err := h.checkContract(raw); err != nil {
		writeError(c, h.logger, err, nil)
		return
	}

	var sub service.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		writeError(c, h.logger, domain.Validation("", "request body must be a JSON object"), nil)
		return
	}

	res, err := h.checkout.Checkout(c.Request.Context(), sub)
	if err != nil {
		extra := gin.H{"redirect": res.Redirect}
		if res.OrderID != uuid.Nil {
			extra["order_id"] = res.OrderID
			extra["status"] = res.Status
		}
		writeError(c, h.logger, err, extra)
		return
	}
	c.JSON(http.StatusOK, res)
}

// checkContract validates the raw body against the embedded schema and
// reports the first violation.
func (h *Handler) checkContract(raw []byte) error {
	result, err := h.contract.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return domain.Validation("", "request body must be valid JSON")
	}
	if result.Valid() {
		return nil
	}
	first := result.Errors()[0]
	field := first.Field()
	if field == "(root)" {
		field = ""
	}
	return domain.Validation(field, first.Description())
}

// IssueToken handles POST /api/v1/checkout/token.
func (h *Handler) IssueToken(c *gin.Context) {
	token, exp, err := h.tokens.Issue()
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"anti_replay_token": token, "expires_at": exp.UTC()})
}
