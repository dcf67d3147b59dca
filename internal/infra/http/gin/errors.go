package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"glampbook/internal/pkg/errs"
)

var kindStatus = map[string]int{
	"not_found":          http.StatusNotFound,
	"unavailable":        http.StatusConflict,
	"capacity_exceeded":  http.StatusUnprocessableEntity,
	"invalid_transition": http.StatusConflict,
	"already_canceled":   http.StatusConflict,
	"conflict":           http.StatusServiceUnavailable,
	"invalid_input":      http.StatusBadRequest,
	"unauthenticated":    http.StatusUnauthorized,
	"forbidden":          http.StatusForbidden,
}

// statusFor maps the error taxonomy onto HTTP. Partial failures never reach
// here: the primary operation already succeeded.
func statusFor(err error) (int, string) {
	kind := errs.Kind(err)
	if status, ok := kindStatus[kind]; ok {
		return status, kind
	}
	return http.StatusInternalServerError, "internal"
}

func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	status, kind := statusFor(err)
	if logger != nil {
		fields := []any{"status", status, "kind", kind, "error", err, "path", c.FullPath()}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "user_id", p.UserID)
		}
		if status >= http.StatusInternalServerError {
			fields = append(fields, "stack", errs.ExtractStackLines(err, 12))
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_input"})
}
