package caraudio

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/focus"
	"github.com/GriffinCanCode/carfocus/internal/domain/zone"
)

type focusEvent struct {
	clientID string
	change   audio.FocusChange
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []focusEvent
}

func (r *recordingDispatcher) DispatchFocusChange(info audio.FocusInfo, change audio.FocusChange) audio.RequestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, focusEvent{info.ClientID, change})
	return audio.RequestGranted
}

func (r *recordingDispatcher) SetFocusRequestResult(audio.FocusInfo, audio.RequestResult) {}

func (r *recordingDispatcher) take() []focusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type volumeEvent struct {
	zoneID  int
	groupID int
	mute    bool
	flags   VolumeFlags
}

type recordingListener struct {
	events []volumeEvent
}

func (l *recordingListener) OnGroupVolumeChanged(zoneID, groupID int, flags VolumeFlags) {
	l.events = append(l.events, volumeEvent{zoneID: zoneID, groupID: groupID, flags: flags})
}

func (l *recordingListener) OnMasterMuteChanged(zoneID int, flags VolumeFlags) {
	l.events = append(l.events, volumeEvent{zoneID: zoneID, groupID: -1, mute: true, flags: flags})
}

// refusingPolicy fails every affinity change
type refusingPolicy struct{}

func (refusingPolicy) SetUIDDeviceAffinity(int, []string) bool { return false }
func (refusingPolicy) RemoveUIDDeviceAffinity(int) bool        { return false }

func newTestService(t *testing.T, modify func(*Options)) (*Service, *recordingDispatcher) {
	t.Helper()
	zones, err := zone.Build(zone.DefaultConfig())
	require.NoError(t, err)

	rec := &recordingDispatcher{}
	opts := Options{
		DynamicRouting: true,
		CarFocus:       true,
		Zones:          zones,
		Dispatcher:     rec,
		Logger:         zaptest.NewLogger(t),
	}
	if modify != nil {
		modify(&opts)
	}

	s, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(s.Release)
	return s, rec
}

func focusRequest(client string, uid int, usage audio.Usage, gain audio.FocusChange) audio.FocusInfo {
	return audio.FocusInfo{
		ClientID:    client,
		ClientUID:   uid,
		PackageName: "com.example." + client,
		GainRequest: gain,
		Attributes:  audio.Attributes{Usage: usage},
	}
}

func TestNewValidatesZones(t *testing.T) {
	_, err := New(Options{DynamicRouting: true})
	assert.ErrorIs(t, err, focus.ErrNoZones)

	_, err = New(Options{DynamicRouting: true, Zones: []*zone.Zone{zone.New(1, "orphan")}})
	assert.Error(t, err)

	_, err = New(Options{})
	assert.NoError(t, err)
}

func TestZoneIDForUIDDefaultsToPrimary(t *testing.T) {
	table := NewAffinityTable()
	s, _ := newTestService(t, func(o *Options) { o.Policy = table })

	assert.Equal(t, zone.PrimaryZoneID, s.ZoneIDForUID(10))
	assert.Equal(t, map[int]int{10: 0}, s.UIDZoneMap())

	devices, ok := table.Affinity(10)
	require.True(t, ok)
	assert.Contains(t, devices, "bus0_media_out")
	assert.NotContains(t, devices, "bus100_rear_seat")
}

func TestSetZoneIDForUIDCarriesFocus(t *testing.T) {
	table := NewAffinityTable()
	s, rec := newTestService(t, func(o *Options) { o.Policy = table })

	music := focusRequest("music1", 10, audio.UsageMedia, audio.FocusGain)
	call := focusRequest("call1", 10, audio.UsageVoiceCommunication, audio.FocusGainTransient)
	other := focusRequest("nav1", 20, audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck)

	for _, info := range []audio.FocusInfo{music, call, other} {
		result, err := s.RequestFocus(info)
		require.NoError(t, err)
		require.Equal(t, audio.RequestGranted, result)
	}
	rec.take()

	ok, err := s.SetZoneIDForUID(1, 10)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []focusEvent{
		// Old zone, losers first
		{"music1", audio.FocusLossTransient},
		{"call1", audio.FocusLossTransient},
		// New zone, same order
		{"music1", audio.FocusGain},
		{"music1", audio.FocusLossTransient},
		{"call1", audio.FocusGainTransient},
	}, rec.take())

	snaps, err := s.FocusSnapshot()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Len(t, snaps[0].Holders, 1)
	assert.Equal(t, "nav1", snaps[0].Holders[0].ClientID)
	assert.Empty(t, snaps[0].Losers)
	require.Len(t, snaps[1].Holders, 1)
	assert.Equal(t, "call1", snaps[1].Holders[0].ClientID)
	require.Len(t, snaps[1].Losers, 1)
	assert.Equal(t, "music1", snaps[1].Losers[0].ClientID)

	assert.Equal(t, 1, s.ZoneIDForUID(10))
	devices, _ := table.Affinity(10)
	assert.Equal(t, []string{"bus100_rear_seat"}, devices)
}

func TestSetZoneIDForUIDFailsOnAffinity(t *testing.T) {
	s, _ := newTestService(t, func(o *Options) { o.Policy = refusingPolicy{} })

	ok, err := s.SetZoneIDForUID(1, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.UIDZoneMap())
}

func TestSetZoneIDForUIDValidation(t *testing.T) {
	s, _ := newTestService(t, nil)

	_, err := s.SetZoneIDForUID(5, 10)
	assert.ErrorIs(t, err, ErrZoneOutOfRange)
	_, err = s.SetZoneIDForUID(-1, 10)
	assert.ErrorIs(t, err, ErrZoneOutOfRange)
}

func TestClearZoneIDForUID(t *testing.T) {
	table := NewAffinityTable()
	s, _ := newTestService(t, func(o *Options) { o.Policy = table })

	_, err := s.SetZoneIDForUID(1, 10)
	require.NoError(t, err)

	ok, err := s.ClearZoneIDForUID(10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.UIDZoneMap())
	_, pinned := table.Affinity(10)
	assert.False(t, pinned)

	// Clearing an unmapped uid succeeds
	ok, err = s.ClearZoneIDForUID(99)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestZoneIDForDisplayPort(t *testing.T) {
	s, _ := newTestService(t, nil)

	assert.Equal(t, 0, s.ZoneIDForDisplayPort(0))
	assert.Equal(t, 1, s.ZoneIDForDisplayPort(1))
	assert.Equal(t, 0, s.ZoneIDForDisplayPort(9))
}

func TestGroupVolume(t *testing.T) {
	s, _ := newTestService(t, nil)
	listener := &recordingListener{}
	s.RegisterVolumeListener(listener)

	current, err := s.GroupVolume(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 26, current)

	minIndex, err := s.GroupMinVolume(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, minIndex)
	maxIndex, err := s.GroupMaxVolume(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 38, maxIndex)

	require.NoError(t, s.SetGroupVolume(0, 0, 30, FlagShowUI))
	current, _ = s.GroupVolume(0, 0)
	assert.Equal(t, 30, current)
	assert.Equal(t, []volumeEvent{{zoneID: 0, groupID: 0, flags: FlagShowUI}}, listener.events)

	assert.ErrorIs(t, s.SetGroupVolume(0, 0, 39, 0), zone.ErrGainOutOfRange)
	assert.ErrorIs(t, s.SetGroupVolume(0, 7, 1, 0), zone.ErrGroupOutOfRange)
	assert.ErrorIs(t, s.SetGroupVolume(3, 0, 1, 0), ErrZoneOutOfRange)
	assert.Len(t, listener.events, 1, "failed changes are not reported")

	s.UnregisterVolumeListener(listener)
	require.NoError(t, s.SetGroupVolume(0, 0, 10, 0))
	assert.Len(t, listener.events, 1)
}

func TestVolumeGroupLookups(t *testing.T) {
	s, _ := newTestService(t, nil)

	count, err := s.VolumeGroupCount(0)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	count, err = s.VolumeGroupCount(1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, err = s.VolumeGroupCount(2)
	assert.ErrorIs(t, err, ErrZoneOutOfRange)

	groupID, err := s.VolumeGroupIDForUsage(0, audio.UsageAssistant)
	require.NoError(t, err)
	assert.Equal(t, 1, groupID)
	groupID, err = s.VolumeGroupIDForUsage(0, audio.UsageVirtualSource)
	require.NoError(t, err)
	assert.Equal(t, -1, groupID)

	usages, err := s.UsagesForVolumeGroupID(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []audio.Usage{audio.UsageVoiceCommunication, audio.UsageVoiceCommunicationSignalling}, usages)

	assert.Equal(t, []int{0, 1}, s.AudioZoneIDs())
}

func TestOnVolumeAdjustment(t *testing.T) {
	s, _ := newTestService(t, nil)
	listener := &recordingListener{}
	s.RegisterVolumeListener(listener)

	// Nothing playing: media group
	require.NoError(t, s.OnVolumeAdjustment(AdjustRaise))
	current, _ := s.GroupVolume(0, 0)
	assert.Equal(t, 27, current)
	assert.Equal(t, FlagFromKey|FlagShowUI, listener.events[0].flags)

	require.NoError(t, s.SetGroupVolume(0, 0, 38, 0))
	require.NoError(t, s.OnVolumeAdjustment(AdjustRaise))
	current, _ = s.GroupVolume(0, 0)
	assert.Equal(t, 38, current, "raise clamps at max")

	// An active call takes the keys
	_, err := s.RequestFocus(focusRequest("call1", 10, audio.UsageVoiceCommunication, audio.FocusGainTransient))
	require.NoError(t, err)
	require.NoError(t, s.OnVolumeAdjustment(AdjustLower))
	current, _ = s.GroupVolume(0, 2)
	assert.Equal(t, 25, current)

	require.NoError(t, s.OnVolumeAdjustment(AdjustSame))
	current, _ = s.GroupVolume(0, 2)
	assert.Equal(t, 25, current)
}

func TestSuggestedUsagePrefersRinging(t *testing.T) {
	s, _ := newTestService(t, nil)

	_, err := s.RequestFocus(focusRequest("ring1", 10, audio.UsageNotificationRingtone, audio.FocusGainTransient))
	require.NoError(t, err)

	s.mu.Lock()
	usage := s.suggestedUsageLocked()
	s.mu.Unlock()
	assert.Equal(t, audio.UsageNotificationRingtone, usage)
}

func TestSuggestedUsageLatestHolder(t *testing.T) {
	s, _ := newTestService(t, nil)

	_, err := s.RequestFocus(focusRequest("music1", 10, audio.UsageMedia, audio.FocusGain))
	require.NoError(t, err)
	_, err = s.RequestFocus(focusRequest("nav1", 10, audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck))
	require.NoError(t, err)

	s.mu.Lock()
	usage := s.suggestedUsageLocked()
	s.mu.Unlock()
	assert.Equal(t, audio.UsageAssistanceNavigationGuidance, usage)
}

func TestMasterMute(t *testing.T) {
	s, _ := newTestService(t, nil)
	listener := &recordingListener{}
	s.RegisterVolumeListener(listener)

	require.NoError(t, s.OnVolumeAdjustment(AdjustMute))
	assert.True(t, s.MasterMute())
	require.NoError(t, s.OnVolumeAdjustment(AdjustToggleMute))
	assert.False(t, s.MasterMute())
	require.NoError(t, s.OnVolumeAdjustment(AdjustToggleMute))
	assert.True(t, s.MasterMute())
	require.NoError(t, s.OnVolumeAdjustment(AdjustUnmute))
	assert.False(t, s.MasterMute())

	s.SetMasterMute(true, 0)
	assert.True(t, s.MasterMute())
	assert.Len(t, listener.events, 5)
}

func TestLegacyMode(t *testing.T) {
	s, err := New(Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.NoError(t, s.Init())

	count, err := s.VolumeGroupCount(0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	current, err := s.GroupVolume(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, current)

	minIndex, _ := s.GroupMinVolume(0, 1)
	maxIndex, _ := s.GroupMaxVolume(0, 1)
	assert.Equal(t, 1, minIndex)
	assert.Equal(t, 7, maxIndex)

	assert.ErrorIs(t, s.SetGroupVolume(0, 1, 0, 0), zone.ErrGainOutOfRange)
	require.NoError(t, s.SetGroupVolume(0, 1, 3, 0))
	current, _ = s.GroupVolume(0, 1)
	assert.Equal(t, 3, current)
	_, err = s.GroupVolume(0, 3)
	assert.ErrorIs(t, err, zone.ErrGroupOutOfRange)

	usages, err := s.UsagesForVolumeGroupID(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []audio.Usage{audio.UsageNotificationRingtone}, usages)

	groupID, err := s.VolumeGroupIDForUsage(0, audio.UsageAlarm)
	require.NoError(t, err)
	assert.Equal(t, 1, groupID)

	_, err = s.RequestFocus(focusRequest("music1", 10, audio.UsageMedia, audio.FocusGain))
	assert.ErrorIs(t, err, ErrDynamicRoutingDisabled)
	_, err = s.SetZoneIDForUID(0, 10)
	assert.ErrorIs(t, err, ErrDynamicRoutingDisabled)
	assert.Equal(t, []int{zone.PrimaryZoneID}, s.AudioZoneIDs())
	assert.False(t, s.IsDynamicRoutingEnabled())
}

func TestFocusDisabled(t *testing.T) {
	s, _ := newTestService(t, func(o *Options) { o.CarFocus = false })

	_, err := s.RequestFocus(focusRequest("music1", 10, audio.UsageMedia, audio.FocusGain))
	assert.ErrorIs(t, err, ErrCarFocusDisabled)

	// Zone moves still work without focus
	ok, err := s.SetZoneIDForUID(1, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelease(t *testing.T) {
	s, _ := newTestService(t, nil)
	listener := &recordingListener{}
	s.RegisterVolumeListener(listener)

	s.Release()

	_, err := s.RequestFocus(focusRequest("music1", 10, audio.UsageMedia, audio.FocusGain))
	assert.ErrorIs(t, err, ErrNotInitialized)
	require.NoError(t, s.SetGroupVolume(0, 0, 20, 0))
	assert.Empty(t, listener.events)
}

func TestDump(t *testing.T) {
	s, _ := newTestService(t, func(o *Options) { o.ConfigPath = "/etc/carfocus/zones.toml" })
	s.ZoneIDForUID(10)
	_, err := s.RequestFocus(focusRequest("music1", 10, audio.UsageMedia, audio.FocusGain))
	require.NoError(t, err)

	var buf bytes.Buffer
	s.Dump(&buf)
	out := buf.String()

	assert.Contains(t, out, "*CarAudioService*")
	assert.Contains(t, out, "Run in legacy mode? false")
	assert.Contains(t, out, "/etc/carfocus/zones.toml")
	assert.Contains(t, out, "UID 10 mapped to zone 0")
	assert.Contains(t, out, "music1 uid=10")
}
