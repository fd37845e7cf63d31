package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/caraudio"
	"github.com/GriffinCanCode/carfocus/internal/providers/permissions"
	"github.com/GriffinCanCode/carfocus/internal/providers/webhook"
)

const serviceName = "carfocus"

// Version is reported by the root and health endpoints
var Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	service     *caraudio.Service
	permissions *permissions.Provider
	webhooks    *webhook.Notifier
	logger      *zap.Logger
	started     time.Time
}

// NewHandlers creates a new handler set. webhooks may be nil when outbound
// delivery is disabled.
func NewHandlers(
	service *caraudio.Service,
	perms *permissions.Provider,
	webhooks *webhook.Notifier,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		service:     service,
		permissions: perms,
		webhooks:    webhooks,
		logger:      logger.Named("http"),
		started:     time.Now(),
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"version":         Version,
		"uptime_seconds":  int64(time.Since(h.started).Seconds()),
		"dynamic_routing": h.service.IsDynamicRoutingEnabled(),
		"zones":           len(h.service.AudioZoneIDs()),
		"master_muted":    h.service.MasterMute(),
		"webhooks":        gin.H{"enabled": h.webhooks != nil},
	})
}

// pathInt reads an integer path parameter, writing a 400 on failure
func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + c.Param(name)})
		return 0, false
	}
	return v, true
}
