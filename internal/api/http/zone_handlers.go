package http

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/zone"
)

// GroupView describes one volume group
type GroupView struct {
	ID       int      `json:"id"`
	Contexts []string `json:"contexts,omitempty"`
	Usages   []string `json:"usages"`
	Current  int      `json:"current"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
}

// ZoneView describes one audio zone
type ZoneView struct {
	ID           int         `json:"id"`
	Name         string      `json:"name,omitempty"`
	Primary      bool        `json:"primary"`
	DisplayPorts []int       `json:"display_ports,omitempty"`
	Devices      []string    `json:"devices,omitempty"`
	Groups       []GroupView `json:"groups"`
}

// ListZones describes every zone and its volume groups
func (h *Handlers) ListZones(c *gin.Context) {
	configured := make(map[int]*zone.Zone)
	for _, z := range h.service.Zones() {
		configured[z.ID()] = z
	}

	ids := h.service.AudioZoneIDs()
	views := make([]ZoneView, 0, len(ids))
	for _, id := range ids {
		view := ZoneView{ID: id, Primary: id == zone.PrimaryZoneID}
		if z, ok := configured[id]; ok {
			view.Name = z.Name()
			for _, port := range z.DisplayPorts() {
				view.DisplayPorts = append(view.DisplayPorts, int(port))
			}
			view.Devices = z.DeviceAddresses()
		}

		count, err := h.service.VolumeGroupCount(id)
		if err != nil {
			h.fail(c, err)
			return
		}
		for groupID := 0; groupID < count; groupID++ {
			group, err := h.groupView(id, groupID)
			if err != nil {
				h.fail(c, err)
				return
			}
			if z, ok := configured[id]; ok && h.service.IsDynamicRoutingEnabled() {
				if g, err := z.VolumeGroup(groupID); err == nil {
					for _, ctx := range g.Contexts() {
						group.Contexts = append(group.Contexts, ctx.String())
					}
				}
			}
			view.Groups = append(view.Groups, group)
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"dynamic_routing": h.service.IsDynamicRoutingEnabled(),
		"zones":           views,
	})
}

func (h *Handlers) groupView(zoneID, groupID int) (GroupView, error) {
	view := GroupView{ID: groupID}
	var err error
	if view.Current, err = h.service.GroupVolume(zoneID, groupID); err != nil {
		return view, err
	}
	if view.Min, err = h.service.GroupMinVolume(zoneID, groupID); err != nil {
		return view, err
	}
	if view.Max, err = h.service.GroupMaxVolume(zoneID, groupID); err != nil {
		return view, err
	}
	usages, err := h.service.UsagesForVolumeGroupID(zoneID, groupID)
	if err != nil {
		return view, err
	}
	view.Usages = usageNames(usages)
	return view, nil
}

func usageNames(usages []audio.Usage) []string {
	out := make([]string, 0, len(usages))
	for _, u := range usages {
		out = append(out, u.String())
	}
	return out
}

// ListUIDs returns the uid to zone mapping
func (h *Handlers) ListUIDs(c *gin.Context) {
	mapping := h.service.UIDZoneMap()
	uids := make([]int, 0, len(mapping))
	for uid := range mapping {
		uids = append(uids, uid)
	}
	sort.Ints(uids)

	entries := make([]gin.H, 0, len(uids))
	for _, uid := range uids {
		entries = append(entries, gin.H{"uid": uid, "zone_id": mapping[uid]})
	}
	c.JSON(http.StatusOK, gin.H{"uids": entries})
}

// GetUIDZone returns the zone a uid plays in. Unmapped uids are assigned to
// the primary zone.
func (h *Handlers) GetUIDZone(c *gin.Context) {
	uid, ok := pathInt(c, "uid")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "zone_id": h.service.ZoneIDForUID(uid)})
}

// SetUIDZoneRequest is the body of PUT /uids/:uid/zone
type SetUIDZoneRequest struct {
	ZoneID *int `json:"zone_id" binding:"required"`
}

// SetUIDZone moves a uid, and any focus it holds, to another zone
func (h *Handlers) SetUIDZone(c *gin.Context) {
	uid, ok := pathInt(c, "uid")
	if !ok {
		return
	}
	var req SetUIDZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	moved, err := h.service.SetZoneIDForUID(*req.ZoneID, uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !moved {
		c.JSON(http.StatusConflict, gin.H{"error": "device affinity rejected", "uid": uid, "zone_id": *req.ZoneID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "zone_id": *req.ZoneID})
}

// ClearUIDZone removes a uid's zone mapping
func (h *Handlers) ClearUIDZone(c *gin.Context) {
	uid, ok := pathInt(c, "uid")
	if !ok {
		return
	}
	cleared, err := h.service.ClearZoneIDForUID(uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !cleared {
		c.JSON(http.StatusConflict, gin.H{"error": "device affinity could not be removed", "uid": uid})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "cleared": true})
}

// GetDisplayZone returns the zone that owns a physical display port
func (h *Handlers) GetDisplayZone(c *gin.Context) {
	port, err := strconv.ParseUint(c.Param("port"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid port: " + c.Param("port")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"port": port, "zone_id": h.service.ZoneIDForDisplayPort(uint8(port))})
}
