package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"govconnect/internal/logging"
	"govconnect/internal/schema"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func statusFor(kind schema.Kind) int {
	switch kind {
	case schema.KindValidation:
		return http.StatusBadRequest
	case schema.KindDuplicate:
		return http.StatusConflict
	case schema.KindNotFound:
		return http.StatusNotFound
	case schema.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает {"error":{code,message,field}}; внутренние ошибки
// наружу не раскрываются, только в лог.
func (a *App) writeError(c *gin.Context, err error) {
	var e *schema.Error
	if !errors.As(err, &e) {
		logging.From(c, a.log).Error("internal error", zap.Error(err))
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": apiError{Code: "internal", Message: "internal server error"},
		})
		return
	}
	if e.Kind == schema.KindUnavailable {
		logging.From(c, a.log).Warn("storage unavailable", zap.Error(err))
	}
	c.AbortWithStatusJSON(statusFor(e.Kind), gin.H{
		"error": apiError{Code: string(e.Kind), Message: e.Message, Field: e.Field},
	})
}

func badJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": apiError{Code: string(schema.KindValidation), Message: "Invalid JSON"},
	})
}
