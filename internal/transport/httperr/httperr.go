package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
)

// Status maps a service error to its HTTP status.
func Status(err error) int {
	var verr *domainprompt.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, portprompt.ErrMisconfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, promptsvc.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// Write renders err as a JSON error body. Validation errors carry per-field messages.
func Write(c *gin.Context, err error) {
	status := Status(err)

	var verr *domainprompt.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(status, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, portprompt.ErrMisconfigured):
		c.JSON(status, gin.H{"error": portprompt.MisconfigurationMessage})
	default:
		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "path", c.Request.URL.Path, "error", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
	}
}
