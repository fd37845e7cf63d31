package caraudio

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/focus"
	"github.com/GriffinCanCode/carfocus/internal/domain/zone"
)

// AudioZoneIDs returns the ids of every zone. Legacy mode has only the
// primary zone.
func (s *Service) AudioZoneIDs() []int {
	if !s.dynamicRouting {
		return []int{zone.PrimaryZoneID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoneIDsLocked()
}

// ZoneIDForUID returns the zone uid plays in. Unmapped uids are mapped to the
// primary zone so their audio never leaks onto another zone's devices.
func (s *Service) ZoneIDForUID(uid int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoneIDForUIDLocked(uid)
}

func (s *Service) zoneIDForUIDLocked(uid int) int {
	if zoneID, ok := s.uidToZone[uid]; ok {
		return zoneID
	}
	if !s.dynamicRouting {
		return zone.PrimaryZoneID
	}

	s.logger.Info("UID does not have a zone, defaulting to primary zone",
		zap.Int("uid", uid),
		zap.Int("zone", zone.PrimaryZoneID),
	)
	s.setZoneIDForUIDNoCheckLocked(zone.PrimaryZoneID, uid)
	return zone.PrimaryZoneID
}

// UIDZoneMap returns a copy of the uid to zone mapping
func (s *Service) UIDZoneMap() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.uidToZone))
	for uid, zoneID := range s.uidToZone {
		out[uid] = zoneID
	}
	return out
}

// SetZoneIDForUID moves uid to zoneID. Focus the uid holds or waits for in its
// old zone is transiently lost there and re-requested in the new zone. Losers
// are handled before holders in both steps so a loser cannot pop up while the
// holders are being removed.
func (s *Service) SetZoneIDForUID(zoneID, uid int) (bool, error) {
	if !s.dynamicRouting {
		return false, ErrDynamicRoutingDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkZoneLocked(zoneID); err != nil {
		return false, err
	}
	s.logger.Info("setZoneIdForUid", zap.Int("uid", uid), zap.Int("zone", zoneID))

	var holders, losers []audio.FocusInfo
	currentZone, mapped := s.uidToZone[uid]
	if mapped && s.focus != nil {
		holders = s.focus.HoldersForUID(uid, currentZone)
		losers = s.focus.LosersForUID(uid, currentZone)
		s.focus.TransientlyLoseFocusInZone(losers, currentZone)
		s.focus.TransientlyLoseFocusInZone(holders, currentZone)
	}

	if !s.checkAndRemoveUIDLocked(uid) || !s.setZoneIDForUIDNoCheckLocked(zoneID, uid) {
		s.recordTransfer("failed")
		return false, nil
	}

	if s.focus != nil {
		s.regainFocusLocked(losers, zoneID)
		s.regainFocusLocked(holders, zoneID)
	}
	s.recordTransfer("ok")
	return true, nil
}

func (s *Service) regainFocusLocked(infos []audio.FocusInfo, zoneID int) {
	count := len(s.zones)
	for _, info := range infos {
		target := focus.ResolveZoneID(info, zoneID, count)
		if s.focus.ReevaluateAndRegainInZone(info, target) != audio.RequestGranted {
			s.logger.Info("Focus could not be granted for entry",
				zap.String("client_id", info.ClientID),
				zap.Int("uid", info.ClientUID),
				zap.Int("zone", target),
			)
		}
	}
}

// ClearZoneIDForUID removes uid's mapping. It reports false when the device
// affinity could not be removed.
func (s *Service) ClearZoneIDForUID(uid int) (bool, error) {
	if !s.dynamicRouting {
		return false, ErrDynamicRoutingDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkAndRemoveUIDLocked(uid), nil
}

func (s *Service) setZoneIDForUIDNoCheckLocked(zoneID, uid int) bool {
	s.logger.Debug("setZoneIdForUidNoCheck", zap.Int("uid", uid), zap.Int("zone", zoneID))
	if s.policy.SetUIDDeviceAffinity(uid, s.zones[zoneID].DeviceAddresses()) {
		s.uidToZone[uid] = zoneID
		return true
	}
	s.logger.Warn("Failed to set device affinity",
		zap.Int("uid", uid),
		zap.Int("zone", zoneID),
	)
	return false
}

// checkAndRemoveUIDLocked is true when uid ends up unmapped
func (s *Service) checkAndRemoveUIDLocked(uid int) bool {
	zoneID, ok := s.uidToZone[uid]
	if !ok {
		return true
	}
	s.logger.Info("Removing uid from zone", zap.Int("uid", uid), zap.Int("zone", zoneID))
	if s.policy.RemoveUIDDeviceAffinity(uid) {
		delete(s.uidToZone, uid)
		return true
	}
	s.logger.Warn("Failed to remove device affinity",
		zap.Int("uid", uid),
		zap.Int("zone", zoneID),
	)
	return false
}

// ZoneIDForDisplayPort returns the zone owning a physical display, or the
// primary zone when none does.
func (s *Service) ZoneIDForDisplayPort(port uint8) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		if z.HasDisplayPort(port) {
			return z.ID()
		}
	}
	return zone.PrimaryZoneID
}

func (s *Service) recordTransfer(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordZoneTransfer(outcome)
	}
}
