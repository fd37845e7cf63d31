package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
)

// FocusRequest is the body of POST /focus/request and /focus/abandon
type FocusRequest struct {
	ClientID    string `json:"client_id"`
	UID         int    `json:"uid"`
	PackageName string `json:"package_name"`
	// Usage is a usage name ("USAGE_MEDIA", "media") or its numeric value
	Usage string `json:"usage"`
	// Gain is one of GAIN, GAIN_TRANSIENT, GAIN_TRANSIENT_MAY_DUCK,
	// GAIN_TRANSIENT_EXCLUSIVE
	Gain                 string `json:"gain"`
	ZoneID               *int   `json:"zone_id,omitempty"`
	PausesOnDuckableLoss bool   `json:"pauses_on_duckable_loss,omitempty"`
	ReceiveDuckingEvents bool   `json:"receive_ducking_events,omitempty"`
}

// focusInfo converts the body. Gain is only required for requests.
func (r FocusRequest) focusInfo(requireGain bool) (audio.FocusInfo, error) {
	info := audio.FocusInfo{
		ClientID:    r.ClientID,
		ClientUID:   r.UID,
		PackageName: r.PackageName,
		Attributes: audio.Attributes{
			ZoneID:               r.ZoneID,
			ReceiveDuckingEvents: r.ReceiveDuckingEvents,
		},
	}
	if r.PausesOnDuckableLoss {
		info.Flags |= audio.FlagPausesOnDuckableLoss
	}

	if r.Usage != "" {
		usage, err := audio.ParseUsage(r.Usage)
		if err != nil {
			return info, err
		}
		info.Attributes.Usage = usage
	}

	if r.Gain != "" || requireGain {
		gain, err := audio.ParseFocusChange(r.Gain)
		if err != nil {
			return info, err
		}
		if !gain.IsGainRequest() {
			return info, errors.New("gain must be a GAIN request type, got " + gain.String())
		}
		info.GainRequest = gain
	}
	return info, nil
}

// GetFocus returns the holders and losers of every zone
func (h *Handlers) GetFocus(c *gin.Context) {
	snapshot, err := h.service.FocusSnapshot()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": snapshot})
}

// RequestFocus arbitrates a focus request. A client id is generated when the
// caller omits one and is echoed back.
func (h *Handlers) RequestFocus(c *gin.Context) {
	var req FocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	info, err := req.focusInfo(true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.RequestFocus(info)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Debug("Focus requested",
		zap.String("client_id", info.ClientID),
		zap.Stringer("usage", info.Attributes.Usage),
		zap.Stringer("gain", info.GainRequest),
		zap.Stringer("result", result),
	)
	c.JSON(http.StatusOK, gin.H{
		"client_id": info.ClientID,
		"result":    result.String(),
	})
}

// AbandonFocus releases a client's focus request
func (h *Handlers) AbandonFocus(c *gin.Context) {
	var req FocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.ClientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
		return
	}

	info, err := req.focusInfo(false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.AbandonFocus(info); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_id": info.ClientID, "abandoned": true})
}

// WebhookRequest is the body of POST /focus/webhooks
type WebhookRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	URL      string `json:"url" binding:"required"`
}

// ListWebhooks returns the registered callback URLs by client id
func (h *Handlers) ListWebhooks(c *gin.Context) {
	if !h.webhooksEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": h.webhooks.Endpoints()})
}

// RegisterWebhook sets the callback URL that receives a client's focus events
func (h *Handlers) RegisterWebhook(c *gin.Context) {
	if !h.webhooksEnabled(c) {
		return
	}
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := h.webhooks.Register(req.ClientID, req.URL); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client_id": req.ClientID, "url": req.URL})
}

// UnregisterWebhook drops a client's callback URL
func (h *Handlers) UnregisterWebhook(c *gin.Context) {
	if !h.webhooksEnabled(c) {
		return
	}
	clientID := c.Param("client_id")
	if !h.webhooks.Unregister(clientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no webhook for client " + clientID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_id": clientID, "removed": true})
}

func (h *Handlers) webhooksEnabled(c *gin.Context) bool {
	if h.webhooks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook delivery disabled"})
		return false
	}
	return true
}
