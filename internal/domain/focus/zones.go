package focus

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
)

// ErrNoZones is returned when a router is built without any zone
var ErrNoZones = errors.New("focus: at least one audio zone is required")

// Zones routes focus requests to the arbitrator of the zone they belong to.
// Each zone is arbitrated independently.
type Zones struct {
	zones  map[int]*Zone
	ids    []int
	logger *zap.Logger

	mu         sync.RWMutex
	host       Host       // Protected by mu
	dispatcher Dispatcher // Protected by mu
}

// NewZones creates one arbitrator per zone id
func NewZones(zoneIDs []int, resolver ContextResolver, permissions PermissionChecker, logger *zap.Logger) (*Zones, error) {
	if len(zoneIDs) == 0 {
		return nil, ErrNoZones
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	zs := &Zones{
		zones:      make(map[int]*Zone, len(zoneIDs)),
		logger:     logger,
		dispatcher: discardDispatcher{},
	}
	for _, id := range zoneIDs {
		if _, dup := zs.zones[id]; dup {
			return nil, fmt.Errorf("focus: duplicate zone id %d", id)
		}
		zs.zones[id] = NewZone(id, resolver, permissions, logger)
		zs.ids = append(zs.ids, id)
	}
	sort.Ints(zs.ids)
	return zs, nil
}

// WithMetrics adds metrics tracking to every zone
func (zs *Zones) WithMetrics(metrics *monitoring.Metrics) *Zones {
	for _, z := range zs.zones {
		z.WithMetrics(metrics)
	}
	return zs
}

// SetOwner completes construction once the host exists. The host resolves
// uid zones; the dispatcher receives every zone's events.
func (zs *Zones) SetOwner(host Host, dispatcher Dispatcher) {
	zs.mu.Lock()
	zs.host = host
	if dispatcher == nil {
		dispatcher = discardDispatcher{}
	}
	zs.dispatcher = dispatcher
	zs.mu.Unlock()

	for _, z := range zs.zones {
		z.SetDispatcher(dispatcher)
	}
}

// ZoneIDs returns the arbitrated zone ids in ascending order
func (zs *Zones) ZoneIDs() []int {
	out := make([]int, len(zs.ids))
	copy(out, zs.ids)
	return out
}

// Zone returns the arbitrator for id
func (zs *Zones) Zone(id int) (*Zone, bool) {
	z, ok := zs.zones[id]
	return z, ok
}

// OnFocusRequest arbitrates the request in its resolved zone
func (zs *Zones) OnFocusRequest(info audio.FocusInfo) audio.RequestResult {
	z := zs.zoneFor(info)
	if z == nil {
		zs.currentDispatcher().SetFocusRequestResult(info, audio.RequestFailed)
		return audio.RequestFailed
	}
	return z.OnFocusRequest(info)
}

// OnFocusAbandon abandons the request in its resolved zone
func (zs *Zones) OnFocusAbandon(info audio.FocusInfo) {
	if z := zs.zoneFor(info); z != nil {
		z.OnFocusAbandon(info)
	}
}

// HoldersForUID lists uid's holders in zoneID
func (zs *Zones) HoldersForUID(uid, zoneID int) []audio.FocusInfo {
	z, ok := zs.zones[zoneID]
	if !ok {
		return nil
	}
	return z.HoldersForUID(uid)
}

// Holders lists zoneID's holders in grant order
func (zs *Zones) Holders(zoneID int) []audio.FocusInfo {
	z, ok := zs.zones[zoneID]
	if !ok {
		return nil
	}
	return z.Holders()
}

// LosersForUID lists uid's transient losers in zoneID
func (zs *Zones) LosersForUID(uid, zoneID int) []audio.FocusInfo {
	z, ok := zs.zones[zoneID]
	if !ok {
		return nil
	}
	return z.LosersForUID(uid)
}

// TransientlyLoseFocusInZone forces each request out of zoneID with
// LOSS_TRANSIENT, in the given order.
func (zs *Zones) TransientlyLoseFocusInZone(infos []audio.FocusInfo, zoneID int) {
	z, ok := zs.zones[zoneID]
	if !ok {
		zs.logger.Warn("Transient loss requested for unknown zone", zap.Int("zone", zoneID))
		return
	}
	for _, info := range infos {
		z.RemoveAndTransientlyLoseFocus(info)
	}
}

// ReevaluateAndRegain re-arbitrates the request in the zone it now resolves to
func (zs *Zones) ReevaluateAndRegain(info audio.FocusInfo) audio.RequestResult {
	z := zs.zoneFor(info)
	if z == nil {
		return audio.RequestFailed
	}
	return z.ReevaluateAndRegain(info)
}

// ReevaluateAndRegainInZone is ReevaluateAndRegain for callers that already
// resolved the zone, such as a host holding its own routing lock.
func (zs *Zones) ReevaluateAndRegainInZone(info audio.FocusInfo, zoneID int) audio.RequestResult {
	z, ok := zs.zones[zoneID]
	if !ok {
		return audio.RequestFailed
	}
	return z.ReevaluateAndRegain(info)
}

// Snapshot returns every zone's state in zone id order
func (zs *Zones) Snapshot() []ZoneSnapshot {
	out := make([]ZoneSnapshot, 0, len(zs.ids))
	for _, id := range zs.ids {
		out = append(out, zs.zones[id].Snapshot())
	}
	return out
}

// Dump writes each zone's focus state
func (zs *Zones) Dump(w io.Writer, indent string) {
	fmt.Fprintf(w, "%s*Zones audio focus* (%d zones)\n", indent, len(zs.ids))
	for _, id := range zs.ids {
		zs.zones[id].Dump(w, indent+"\t")
	}
}

// ZoneIDFor resolves the zone a request belongs to. The host's uid lookup
// always runs first, since it also records the default mapping for unknown
// uids. An explicit zone id on the request wins when it is in range.
func (zs *Zones) ZoneIDFor(info audio.FocusInfo) int {
	zs.mu.RLock()
	host := zs.host
	zs.mu.RUnlock()

	uidZone := zs.ids[0]
	count := len(zs.ids)
	if host != nil {
		uidZone = host.ZoneIDForUID(info.ClientUID)
		count = len(host.AudioZoneIDs())
	}

	zoneID := ResolveZoneID(info, uidZone, count)
	if explicit := info.Attributes.ZoneID; explicit != nil && zoneID != *explicit {
		zs.logger.Warn("Ignoring out of range zone id on focus request",
			zap.String("client_id", info.ClientID),
			zap.Int("requested_zone", *explicit),
		)
	}
	return zoneID
}

// ResolveZoneID picks the explicit zone id carried by info when it lies in
// [0, zoneCount), otherwise uidZone.
func ResolveZoneID(info audio.FocusInfo, uidZone, zoneCount int) int {
	if explicit := info.Attributes.ZoneID; explicit != nil && *explicit >= 0 && *explicit < zoneCount {
		return *explicit
	}
	return uidZone
}

func (zs *Zones) zoneFor(info audio.FocusInfo) *Zone {
	id := zs.ZoneIDFor(info)
	z, ok := zs.zones[id]
	if !ok {
		zs.logger.Error("Focus request resolved to unknown zone",
			zap.String("client_id", info.ClientID),
			zap.Int("zone", id),
		)
		return nil
	}
	return z
}

func (zs *Zones) currentDispatcher() Dispatcher {
	zs.mu.RLock()
	defer zs.mu.RUnlock()
	return zs.dispatcher
}
