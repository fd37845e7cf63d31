package http

import "github.com/gin-gonic/gin"

// Register mounts the broker API on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/dump", h.Dump)

	// Focus arbitration
	r.GET("/focus", h.GetFocus)
	r.POST("/focus/request", h.RequestFocus)
	r.POST("/focus/abandon", h.AbandonFocus)
	r.GET("/focus/webhooks", h.ListWebhooks)
	r.POST("/focus/webhooks", h.RegisterWebhook)
	r.DELETE("/focus/webhooks/:client_id", h.UnregisterWebhook)

	// Zones and routing
	r.GET("/zones", h.ListZones)
	r.GET("/uids", h.ListUIDs)
	r.GET("/uids/:uid/zone", h.GetUIDZone)
	r.PUT("/uids/:uid/zone", h.SetUIDZone)
	r.DELETE("/uids/:uid/zone", h.ClearUIDZone)
	r.GET("/displays/:port/zone", h.GetDisplayZone)

	// Volume
	r.GET("/zones/:zone/groups/:group/volume", h.GetGroupVolume)
	r.PUT("/zones/:zone/groups/:group/volume", h.SetGroupVolume)
	r.GET("/zones/:zone/usages/:usage/group", h.GetGroupForUsage)
	r.POST("/volume/adjust", h.AdjustVolume)
	r.GET("/volume/mute", h.GetMasterMute)
	r.PUT("/volume/mute", h.SetMasterMute)

	// Ducking events entitlement
	r.GET("/permissions/ducking", h.ListDuckingPackages)
	r.GET("/permissions/ducking/audit", h.DuckingAudit)
	r.PUT("/permissions/ducking/:package", h.GrantDucking)
	r.DELETE("/permissions/ducking/:package", h.RevokeDucking)
}
