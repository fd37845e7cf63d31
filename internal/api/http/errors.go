package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/caraudio"
	"github.com/GriffinCanCode/carfocus/internal/domain/zone"
	"github.com/GriffinCanCode/carfocus/internal/providers/webhook"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, caraudio.ErrZoneOutOfRange), errors.Is(err, zone.ErrGroupOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, zone.ErrGainOutOfRange), errors.Is(err, webhook.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, caraudio.ErrDynamicRoutingDisabled), errors.Is(err, caraudio.ErrCarFocusDisabled):
		return http.StatusConflict
	case errors.Is(err, caraudio.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
