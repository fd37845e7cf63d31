package caraudio

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/zone"
)

// VolumeFlags qualify a volume change
type VolumeFlags int

const (
	FlagShowUI  VolumeFlags = 1 << 0
	FlagFromKey VolumeFlags = 1 << 12
)

// VolumeListener is told about volume and mute changes. Calls are made with
// the service lock held, so implementations must return quickly and must not
// call back into the service.
type VolumeListener interface {
	OnGroupVolumeChanged(zoneID, groupID int, flags VolumeFlags)
	OnMasterMuteChanged(zoneID int, flags VolumeFlags)
}

// Adjustment is a volume key action
type Adjustment int

const (
	AdjustLower      Adjustment = -1
	AdjustSame       Adjustment = 0
	AdjustRaise      Adjustment = 1
	AdjustMute       Adjustment = -100
	AdjustUnmute     Adjustment = 100
	AdjustToggleMute Adjustment = 101
)

var adjustmentNames = map[Adjustment]string{
	AdjustLower:      "lower",
	AdjustSame:       "same",
	AdjustRaise:      "raise",
	AdjustMute:       "mute",
	AdjustUnmute:     "unmute",
	AdjustToggleMute: "toggle_mute",
}

func (a Adjustment) String() string {
	if name, ok := adjustmentNames[a]; ok {
		return name
	}
	return fmt.Sprintf("adjust(%d)", int(a))
}

// ParseAdjustment maps a name such as "raise" to an Adjustment
func ParseAdjustment(name string) (Adjustment, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range adjustmentNames {
		if n == name {
			return a, nil
		}
	}
	return AdjustSame, fmt.Errorf("unknown volume adjustment %q", name)
}

// StreamType is a legacy playback stream
type StreamType int

const (
	StreamRing  StreamType = 2
	StreamMusic StreamType = 3
	StreamAlarm StreamType = 4
)

func (t StreamType) String() string {
	switch t {
	case StreamRing:
		return "STREAM_RING"
	case StreamMusic:
		return "STREAM_MUSIC"
	case StreamAlarm:
		return "STREAM_ALARM"
	default:
		return fmt.Sprintf("STREAM(%d)", int(t))
	}
}

// legacyStream stands in for a volume group when dynamic routing is off
type legacyStream struct {
	stream StreamType
	usage  audio.Usage
	min    int
	max    int
	index  int
}

// Group ids in legacy mode index this table
func newLegacyStreams() []legacyStream {
	return []legacyStream{
		{stream: StreamMusic, usage: audio.UsageMedia, min: 0, max: 15, index: 5},
		{stream: StreamAlarm, usage: audio.UsageAlarm, min: 1, max: 7, index: 6},
		{stream: StreamRing, usage: audio.UsageNotificationRingtone, min: 0, max: 7, index: 5},
	}
}

// RegisterVolumeListener adds l. Registering twice has no effect.
func (s *Service) RegisterVolumeListener(l VolumeListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners[l] = struct{}{}
}

// UnregisterVolumeListener removes l
func (s *Service) UnregisterVolumeListener(l VolumeListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	delete(s.listeners, l)
}

func (s *Service) callbackGroupVolumeChange(zoneID, groupID int, flags VolumeFlags) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for l := range s.listeners {
		l.OnGroupVolumeChanged(zoneID, groupID, flags)
	}
}

func (s *Service) callbackMasterMuteChange(zoneID int, flags VolumeFlags) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for l := range s.listeners {
		l.OnMasterMuteChanged(zoneID, flags)
	}
}

func (s *Service) volumeGroupLocked(zoneID, groupID int) (*zone.VolumeGroup, error) {
	if err := s.checkZoneLocked(zoneID); err != nil {
		return nil, err
	}
	return s.zones[zoneID].VolumeGroup(groupID)
}

func (s *Service) legacyStreamLocked(groupID int) (*legacyStream, error) {
	if groupID < 0 || groupID >= len(s.streams) {
		return nil, fmt.Errorf("legacy group %d: %w", groupID, zone.ErrGroupOutOfRange)
	}
	return &s.streams[groupID], nil
}

// GroupVolume returns the current volume index of a group
func (s *Service) GroupVolume(zoneID, groupID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dynamicRouting {
		st, err := s.legacyStreamLocked(groupID)
		if err != nil {
			return 0, err
		}
		return st.index, nil
	}
	g, err := s.volumeGroupLocked(zoneID, groupID)
	if err != nil {
		return 0, err
	}
	return g.CurrentGainIndex(), nil
}

// GroupMinVolume returns the lowest volume index of a group
func (s *Service) GroupMinVolume(zoneID, groupID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dynamicRouting {
		st, err := s.legacyStreamLocked(groupID)
		if err != nil {
			return 0, err
		}
		return st.min, nil
	}
	g, err := s.volumeGroupLocked(zoneID, groupID)
	if err != nil {
		return 0, err
	}
	return g.MinGainIndex(), nil
}

// GroupMaxVolume returns the highest volume index of a group
func (s *Service) GroupMaxVolume(zoneID, groupID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dynamicRouting {
		st, err := s.legacyStreamLocked(groupID)
		if err != nil {
			return 0, err
		}
		return st.max, nil
	}
	g, err := s.volumeGroupLocked(zoneID, groupID)
	if err != nil {
		return 0, err
	}
	return g.MaxGainIndex(), nil
}

// SetGroupVolume sets a group's volume index and notifies listeners
func (s *Service) SetGroupVolume(zoneID, groupID, index int, flags VolumeFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setGroupVolumeLocked(zoneID, groupID, index, flags)
}

func (s *Service) setGroupVolumeLocked(zoneID, groupID, index int, flags VolumeFlags) error {
	if !s.dynamicRouting {
		st, err := s.legacyStreamLocked(groupID)
		if err != nil {
			return err
		}
		if index < st.min || index > st.max {
			return fmt.Errorf("%s index %d outside [%d, %d]: %w", st.stream, index, st.min, st.max, zone.ErrGainOutOfRange)
		}
		st.index = index
	} else {
		g, err := s.volumeGroupLocked(zoneID, groupID)
		if err != nil {
			return err
		}
		if err := g.SetCurrentGainIndex(index); err != nil {
			return fmt.Errorf("zone %d group %d: %w", zoneID, groupID, err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordVolumeChange(zoneID, groupID)
	}
	s.callbackGroupVolumeChange(zoneID, groupID, flags)
	return nil
}

// VolumeGroupCount returns the number of groups in a zone
func (s *Service) VolumeGroupCount(zoneID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dynamicRouting {
		return len(s.streams), nil
	}
	if err := s.checkZoneLocked(zoneID); err != nil {
		return 0, err
	}
	return s.zones[zoneID].VolumeGroupCount(), nil
}

// VolumeGroupIDForUsage returns the group that carries usage, or -1
func (s *Service) VolumeGroupIDForUsage(zoneID int, usage audio.Usage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumeGroupIDForUsageLocked(zoneID, usage)
}

func (s *Service) volumeGroupIDForUsageLocked(zoneID int, usage audio.Usage) (int, error) {
	c := audio.ContextForUsage(usage)
	if !s.dynamicRouting {
		for i, st := range s.streams {
			if audio.ContextForUsage(st.usage) == c {
				return i, nil
			}
		}
		return -1, nil
	}
	if err := s.checkZoneLocked(zoneID); err != nil {
		return -1, err
	}
	return s.zones[zoneID].VolumeGroupIDForContext(c), nil
}

// UsagesForVolumeGroupID lists every usage whose context the group carries
func (s *Service) UsagesForVolumeGroupID(zoneID, groupID int) ([]audio.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dynamicRouting {
		st, err := s.legacyStreamLocked(groupID)
		if err != nil {
			return nil, err
		}
		return []audio.Usage{st.usage}, nil
	}
	g, err := s.volumeGroupLocked(zoneID, groupID)
	if err != nil {
		return nil, err
	}
	return audio.UsagesForContexts(g.Contexts()), nil
}

// MasterMute reports whether all output is muted
func (s *Service) MasterMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masterMute
}

// SetMasterMute mutes or unmutes all output and notifies listeners
func (s *Service) SetMasterMute(mute bool, flags VolumeFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMasterMuteLocked(mute, flags)
}

func (s *Service) setMasterMuteLocked(mute bool, flags VolumeFlags) {
	s.masterMute = mute
	s.logger.Info("Master mute changed", zap.Bool("muted", mute))
	if s.metrics != nil {
		s.metrics.SetMasterMuted(mute)
	}
	s.callbackMasterMuteChange(zone.PrimaryZoneID, flags)
}

// OnVolumeAdjustment applies a volume key action to the primary zone group of
// the usage most likely being heard.
func (s *Service) OnVolumeAdjustment(adj Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := s.suggestedUsageLocked()
	zoneID := zone.PrimaryZoneID
	flags := FlagFromKey | FlagShowUI
	s.logger.Debug("onVolumeAdjustment",
		zap.Stringer("adjustment", adj),
		zap.Stringer("suggested_usage", usage),
	)

	switch adj {
	case AdjustLower, AdjustRaise:
		groupID, err := s.volumeGroupIDForUsageLocked(zoneID, usage)
		if err != nil {
			return err
		}
		if groupID < 0 {
			return fmt.Errorf("no volume group for usage %s: %w", usage, zone.ErrGroupOutOfRange)
		}
		current, minIndex, maxIndex, err := s.groupRangeLocked(zoneID, groupID)
		if err != nil {
			return err
		}
		next := current + int(adj)
		if next < minIndex {
			next = minIndex
		}
		if next > maxIndex {
			next = maxIndex
		}
		return s.setGroupVolumeLocked(zoneID, groupID, next, flags)
	case AdjustMute:
		s.setMasterMuteLocked(true, flags)
	case AdjustUnmute:
		s.setMasterMuteLocked(false, flags)
	case AdjustToggleMute:
		s.setMasterMuteLocked(!s.masterMute, flags)
	}
	return nil
}

func (s *Service) groupRangeLocked(zoneID, groupID int) (current, minIndex, maxIndex int, err error) {
	if !s.dynamicRouting {
		st, err := s.legacyStreamLocked(groupID)
		if err != nil {
			return 0, 0, 0, err
		}
		return st.index, st.min, st.max, nil
	}
	g, err := s.volumeGroupLocked(zoneID, groupID)
	if err != nil {
		return 0, 0, 0, err
	}
	return g.CurrentGainIndex(), g.MinGainIndex(), g.MaxGainIndex(), nil
}

// suggestedUsageLocked picks the usage volume keys apply to: a ringing call,
// then an active call, then the most recent focus holder in the primary zone.
func (s *Service) suggestedUsageLocked() audio.Usage {
	if s.focus == nil {
		return audio.DefaultUsage
	}
	holders := s.focus.Holders(zone.PrimaryZoneID)
	for _, h := range holders {
		if audio.ContextForUsage(h.Attributes.Usage) == audio.ContextCallRing {
			return audio.UsageNotificationRingtone
		}
	}
	for _, h := range holders {
		if audio.ContextForUsage(h.Attributes.Usage) == audio.ContextCall {
			return audio.UsageVoiceCommunication
		}
	}
	if len(holders) > 0 {
		return holders[len(holders)-1].Attributes.Usage
	}
	return audio.DefaultUsage
}
