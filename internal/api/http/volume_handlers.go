package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/caraudio"
)

// GetGroupVolume returns a volume group's index and range
func (h *Handlers) GetGroupVolume(c *gin.Context) {
	zoneID, ok := pathInt(c, "zone")
	if !ok {
		return
	}
	groupID, ok := pathInt(c, "group")
	if !ok {
		return
	}

	view, err := h.groupView(zoneID, groupID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone_id": zoneID, "group": view})
}

// SetVolumeRequest is the body of PUT /zones/:zone/groups/:group/volume
type SetVolumeRequest struct {
	Index  *int `json:"index" binding:"required"`
	ShowUI bool `json:"show_ui"`
}

// SetGroupVolume sets a volume group's index
func (h *Handlers) SetGroupVolume(c *gin.Context) {
	zoneID, ok := pathInt(c, "zone")
	if !ok {
		return
	}
	groupID, ok := pathInt(c, "group")
	if !ok {
		return
	}
	var req SetVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	var flags caraudio.VolumeFlags
	if req.ShowUI {
		flags |= caraudio.FlagShowUI
	}
	if err := h.service.SetGroupVolume(zoneID, groupID, *req.Index, flags); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone_id": zoneID, "group_id": groupID, "index": *req.Index})
}

// GetGroupForUsage returns the volume group that carries a usage, -1 for none
func (h *Handlers) GetGroupForUsage(c *gin.Context) {
	zoneID, ok := pathInt(c, "zone")
	if !ok {
		return
	}
	usage, err := audio.ParseUsage(c.Param("usage"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	groupID, err := h.service.VolumeGroupIDForUsage(zoneID, usage)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone_id": zoneID, "usage": usage.String(), "group_id": groupID})
}

// AdjustRequest is the body of POST /volume/adjust
type AdjustRequest struct {
	// Adjustment is one of raise, lower, same, mute, unmute, toggle_mute
	Adjustment string `json:"adjustment" binding:"required"`
}

// AdjustVolume applies a volume key action
func (h *Handlers) AdjustVolume(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	adj, err := caraudio.ParseAdjustment(req.Adjustment)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.OnVolumeAdjustment(adj); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjustment": adj.String(), "master_muted": h.service.MasterMute()})
}

// GetMasterMute reports the master mute state
func (h *Handlers) GetMasterMute(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"muted": h.service.MasterMute()})
}

// MuteRequest is the body of PUT /volume/mute
type MuteRequest struct {
	Muted  *bool `json:"muted" binding:"required"`
	ShowUI bool  `json:"show_ui"`
}

// SetMasterMute mutes or unmutes every zone
func (h *Handlers) SetMasterMute(c *gin.Context) {
	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	var flags caraudio.VolumeFlags
	if req.ShowUI {
		flags |= caraudio.FlagShowUI
	}
	h.service.SetMasterMute(*req.Muted, flags)
	c.JSON(http.StatusOK, gin.H{"muted": *req.Muted})
}
