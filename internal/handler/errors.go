package handler

import (
	"errors"
	"net/http"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

var statusByKind = map[domain.ErrorKind]int{
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindSecurity:          http.StatusForbidden,
	domain.KindPaymentDeclined:   http.StatusPaymentRequired,
	domain.KindConfiguration:     http.StatusServiceUnavailable,
	domain.KindTransientGateway:  http.StatusServiceUnavailable,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindInvalidTransition: http.StatusConflict,
}

// writeError maps domain errors to their status; anything else is a 500
// whose detail only goes to the log.
func writeError(c *gin.Context, log *zap.Logger, err error, extra gin.H) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.FromContext(c.Request.Context(), log).Error("request failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, errorBody{Kind: "internal", Message: "internal error"}, extra)
		return
	}
	status, ok := statusByKind[de.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	respond(c, status, errorBody{Kind: string(de.Kind), Field: de.Field, Message: de.Message}, extra)
}

func respond(c *gin.Context, status int, body errorBody, extra gin.H) {
	out := gin.H{"error": body}
	for k, v := range extra {
		out[k] = v
	}
	c.AbortWithStatusJSON(status, out)
}
