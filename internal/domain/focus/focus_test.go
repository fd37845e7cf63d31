package focus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
)

type event struct {
	clientID string
	change   audio.FocusChange
}

// recorder is a Dispatcher that remembers every event it was handed
type recorder struct {
	mu      sync.Mutex
	events  []event
	results map[string]audio.RequestResult
	refuse  bool
}

func newRecorder() *recorder {
	return &recorder{results: make(map[string]audio.RequestResult)}
}

func (r *recorder) DispatchFocusChange(info audio.FocusInfo, change audio.FocusChange) audio.RequestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{info.ClientID, change})
	if r.refuse {
		return audio.RequestFailed
	}
	return audio.RequestGranted
}

func (r *recorder) SetFocusRequestResult(info audio.FocusInfo, result audio.RequestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[info.ClientID] = result
}

func (r *recorder) take() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type allowList map[string]bool

func (a allowList) CanReceiveDuckingEvents(pkg string) bool { return a[pkg] }

func request(client string, usage audio.Usage, gain audio.FocusChange) audio.FocusInfo {
	return audio.FocusInfo{
		ClientID:    client,
		ClientUID:   1000,
		PackageName: "com.example." + client,
		GainRequest: gain,
		Attributes:  audio.Attributes{Usage: usage},
	}
}

func newTestZone(t *testing.T, perms PermissionChecker) (*Zone, *recorder) {
	t.Helper()
	z := NewZone(0, audio.StaticResolver{}, perms, zaptest.NewLogger(t))
	rec := newRecorder()
	z.SetDispatcher(rec)
	return z, rec
}

func holderIDs(z *Zone) []string {
	z.mu.Lock()
	defer z.mu.Unlock()
	var ids []string
	for _, e := range sortedEntries(z.holders) {
		ids = append(ids, e.clientID())
	}
	return ids
}

func loserIDs(z *Zone) []string {
	z.mu.Lock()
	defer z.mu.Unlock()
	var ids []string
	for _, e := range sortedEntries(z.losers) {
		ids = append(ids, e.clientID())
	}
	return ids
}

// requireConsistent checks that every client appears once and that only
// losers carry blockers.
func requireConsistent(t *testing.T, z *Zone) {
	t.Helper()
	z.mu.Lock()
	defer z.mu.Unlock()

	for id, e := range z.holders {
		assert.False(t, e.blocked(), "holder %s has blockers %v", id, e.blockerIDs())
		_, dup := z.losers[id]
		assert.False(t, dup, "client %s is both holder and loser", id)
	}
	for id, e := range z.losers {
		assert.True(t, e.blocked(), "loser %s has no blockers", id)
	}
}

func TestNavigationMixesWithMusic(t *testing.T) {
	z, rec := newTestZone(t, nil)

	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain)))
	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck)))

	assert.Equal(t, []string{"music1", "nav1"}, holderIDs(z))
	assert.Empty(t, loserIDs(z))
	assert.Empty(t, rec.take(), "no loss should be sent")
	requireConsistent(t, z)
}

func TestNonDuckingNavigationSuspendsMusic(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain))
	z.OnFocusRequest(request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransient))

	assert.Equal(t, []event{{"music1", audio.FocusLossTransient}}, rec.take())
	assert.Equal(t, []string{"nav1"}, holderIDs(z))
	assert.Equal(t, []string{"music1"}, loserIDs(z))
	requireConsistent(t, z)
}

func TestCallPreemptsMusicAndRestoresOnAbandon(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain))
	call := request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient)
	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(call))

	assert.Equal(t, []event{{"music1", audio.FocusLossTransient}}, rec.take())
	assert.Equal(t, []string{"call1"}, holderIDs(z))
	assert.Equal(t, []string{"music1"}, loserIDs(z))

	snap := z.Snapshot()
	require.Len(t, snap.Losers, 1)
	assert.Equal(t, []string{"call1"}, snap.Losers[0].Blockers)

	z.OnFocusAbandon(call)

	assert.Equal(t, []event{{"music1", audio.FocusGain}}, rec.take())
	assert.Equal(t, []string{"music1"}, holderIDs(z))
	assert.Empty(t, loserIDs(z))
	requireConsistent(t, z)
}

func TestPermanentCallTakesMusicForGood(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain))
	call := request("call1", audio.UsageVoiceCommunication, audio.FocusGain)
	z.OnFocusRequest(call)

	assert.Equal(t, []event{{"music1", audio.FocusLoss}}, rec.take())
	assert.Equal(t, []string{"call1"}, holderIDs(z))
	assert.Empty(t, loserIDs(z))

	z.OnFocusAbandon(call)
	assert.Empty(t, rec.take())
	assert.Empty(t, holderIDs(z))
}

func TestNotificationVetoedByTransientExclusive(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("voice1", audio.UsageAssistant, audio.FocusGainTransientExclusive))
	before := z.Snapshot()

	result := z.OnFocusRequest(request("ring1", audio.UsageNotification, audio.FocusGainTransient))

	assert.Equal(t, audio.RequestFailed, result)
	assert.Equal(t, audio.RequestFailed, rec.results["ring1"])
	assert.Equal(t, before, z.Snapshot())
	assert.Empty(t, rec.take())
}

func TestNotificationVetoedByPendingTransientExclusive(t *testing.T) {
	z, _ := newTestZone(t, nil)

	// voice1 is pushed into the losers by a call, keeping its exclusive request
	z.OnFocusRequest(request("voice1", audio.UsageAssistant, audio.FocusGainTransientExclusive))
	z.OnFocusRequest(request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient))
	require.Equal(t, []string{"voice1"}, loserIDs(z))

	result := z.OnFocusRequest(request("note1", audio.UsageNotification, audio.FocusGainTransientMayDuck))
	assert.Equal(t, audio.RequestFailed, result)
}

func TestSameClientSameContextReplaces(t *testing.T) {
	z, rec := newTestZone(t, nil)

	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(request("x", audio.UsageMedia, audio.FocusGain)))
	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(request("x", audio.UsageGame, audio.FocusGainTransient)))

	assert.Equal(t, []string{"x"}, holderIDs(z))
	assert.Empty(t, rec.take(), "a replaced request is not told it lost focus")

	snap := z.Snapshot()
	require.Len(t, snap.Holders, 1)
	assert.Equal(t, audio.FocusGainTransient.String(), snap.Holders[0].GainRequest)
}

func TestSameClientDifferentContextRejected(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("x", audio.UsageMedia, audio.FocusGain))
	before := z.Snapshot()

	result := z.OnFocusRequest(request("x", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck))

	assert.Equal(t, audio.RequestFailed, result)
	assert.Equal(t, before, z.Snapshot())
	assert.Empty(t, rec.take())
}

func TestAbandonUnknownClientIsNoop(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain))
	before := z.Snapshot()

	z.OnFocusAbandon(request("ghost", audio.UsageMedia, audio.FocusGain))
	z.OnFocusAbandon(request("ghost", audio.UsageMedia, audio.FocusGain))

	assert.Equal(t, before, z.Snapshot())
	assert.Empty(t, rec.take())
}

func TestDuckingEntitlement(t *testing.T) {
	tests := []struct {
		name       string
		perms      PermissionChecker
		flags      audio.FocusFlags
		wantEvents []event
		wantLosers []string
	}{
		{
			name:       "not entitled keeps playing",
			perms:      allowList{},
			wantEvents: nil,
			wantLosers: nil,
		},
		{
			name:       "entitled receives duckable loss",
			perms:      allowList{"com.example.music1": true},
			wantEvents: []event{{"music1", audio.FocusLossTransientCanDuck}},
			wantLosers: []string{"music1"},
		},
		{
			name:       "pause on duck receives transient loss",
			perms:      allowList{},
			flags:      audio.FlagPausesOnDuckableLoss,
			wantEvents: []event{{"music1", audio.FocusLossTransient}},
			wantLosers: []string{"music1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, rec := newTestZone(t, tt.perms)

			music := request("music1", audio.UsageMedia, audio.FocusGain)
			music.Flags = tt.flags
			music.Attributes.ReceiveDuckingEvents = true
			z.OnFocusRequest(music)

			result := z.OnFocusRequest(request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck))
			require.Equal(t, audio.RequestGranted, result)

			assert.Equal(t, tt.wantEvents, rec.take())
			assert.Equal(t, tt.wantLosers, loserIDs(z))
			requireConsistent(t, z)
		})
	}
}

func TestDuckedLoserEscalatedByNonDuckingRequest(t *testing.T) {
	z, rec := newTestZone(t, allowList{"com.example.music1": true})

	music := request("music1", audio.UsageMedia, audio.FocusGain)
	music.Attributes.ReceiveDuckingEvents = true
	z.OnFocusRequest(music)
	nav := request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck)
	z.OnFocusRequest(nav)
	require.Equal(t, []event{{"music1", audio.FocusLossTransientCanDuck}}, rec.take())

	call := request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient)
	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(call))

	// Pending music is escalated first, then the navigation holder loses
	assert.Equal(t, []event{
		{"music1", audio.FocusLossTransient},
		{"nav1", audio.FocusLossTransient},
	}, rec.take())

	snap := z.Snapshot()
	require.Len(t, snap.Losers, 2)
	assert.Equal(t, "music1", snap.Losers[0].ClientID)
	assert.Equal(t, []string{"call1", "nav1"}, snap.Losers[0].Blockers)
	assert.False(t, snap.Losers[0].DuckedLoss)

	// Call ends: navigation resumes, music still waits on navigation
	z.OnFocusAbandon(call)
	assert.Equal(t, []event{{"nav1", audio.FocusGainTransientMayDuck}}, rec.take())
	assert.Equal(t, []string{"music1"}, loserIDs(z))

	z.OnFocusAbandon(nav)
	assert.Equal(t, []event{{"music1", audio.FocusGain}}, rec.take())
	assert.Equal(t, []string{"music1"}, holderIDs(z))
	requireConsistent(t, z)
}

func TestPendingEntryRejectsConflictingRequest(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("voice1", audio.UsageAssistant, audio.FocusGainTransient))
	z.OnFocusRequest(request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient))
	require.Equal(t, []string{"voice1"}, loserIDs(z))
	rec.take()

	// The call would mix with navigation, but the waiting voice command rejects it
	result := z.OnFocusRequest(request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck))

	assert.Equal(t, audio.RequestFailed, result)
	assert.Equal(t, []string{"call1"}, holderIDs(z))
	assert.Empty(t, rec.take())
}

func TestPermanentRequestDropsPendingEntries(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain))
	z.OnFocusRequest(request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient))
	rec.take()

	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGain)))

	assert.Equal(t, []event{
		{"music1", audio.FocusLoss},
		{"call1", audio.FocusLoss},
	}, rec.take())
	assert.Equal(t, []string{"nav1"}, holderIDs(z))
	assert.Empty(t, loserIDs(z))
}

func TestReplacingWithDuckableRequestReleasesLosers(t *testing.T) {
	z, rec := newTestZone(t, nil)

	z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain))
	z.OnFocusRequest(request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransient))
	require.Equal(t, []string{"music1"}, loserIDs(z))
	rec.take()

	require.Equal(t, audio.RequestGranted, z.OnFocusRequest(request("nav1", audio.UsageAssistanceNavigationGuidance, audio.FocusGainTransientMayDuck)))

	assert.Equal(t, []event{{"music1", audio.FocusGain}}, rec.take())
	assert.Equal(t, []string{"music1", "nav1"}, holderIDs(z))
	assert.Empty(t, loserIDs(z))
	requireConsistent(t, z)
}

func TestDeliveryFailureKeepsState(t *testing.T) {
	z, rec := newTestZone(t, nil)
	rec.refuse = true

	z.OnFocusRequest(request("music1", audio.UsageMedia, audio.FocusGain))
	z.OnFocusRequest(request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient))

	assert.Equal(t, []string{"call1"}, holderIDs(z))
	assert.Equal(t, []string{"music1"}, loserIDs(z))
}

func TestRemoveAndTransientlyLoseFocus(t *testing.T) {
	z, rec := newTestZone(t, nil)

	music := request("music1", audio.UsageMedia, audio.FocusGain)
	call := request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient)
	z.OnFocusRequest(music)
	z.OnFocusRequest(call)
	rec.take()

	z.RemoveAndTransientlyLoseFocus(call)

	assert.Equal(t, []event{
		{"call1", audio.FocusLossTransient},
		{"music1", audio.FocusGain},
	}, rec.take())
	assert.Equal(t, []string{"music1"}, holderIDs(z))

	// Unknown requests get nothing
	z.RemoveAndTransientlyLoseFocus(call)
	assert.Empty(t, rec.take())
}

func TestReevaluateAndRegain(t *testing.T) {
	z, rec := newTestZone(t, nil)

	music := request("music1", audio.UsageMedia, audio.FocusGain)
	assert.Equal(t, audio.RequestGranted, z.ReevaluateAndRegain(music))
	assert.Equal(t, []event{{"music1", audio.FocusGain}}, rec.take())

	z.OnFocusRequest(request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient))
	rec.take()

	// Media is rejected while a call holds
	assert.Equal(t, audio.RequestFailed, z.ReevaluateAndRegain(request("music2", audio.UsageMedia, audio.FocusGain)))
	assert.Empty(t, rec.take())

	rec.refuse = true
	assert.Equal(t, audio.RequestFailed, z.ReevaluateAndRegain(request("alarm1", audio.UsageAlarm, audio.FocusGainTransientMayDuck)))
	assert.Contains(t, holderIDs(z), "alarm1")
}

func TestFocusForUID(t *testing.T) {
	z, _ := newTestZone(t, nil)

	music := request("music1", audio.UsageMedia, audio.FocusGain)
	music.ClientUID = 10
	call := request("call1", audio.UsageVoiceCommunication, audio.FocusGainTransient)
	call.ClientUID = 20
	z.OnFocusRequest(music)
	z.OnFocusRequest(call)

	assert.Equal(t, []audio.FocusInfo{call}, z.HoldersForUID(20))
	assert.Empty(t, z.HoldersForUID(10))
	assert.Equal(t, []audio.FocusInfo{music}, z.LosersForUID(10))
	assert.Empty(t, z.LosersForUID(20))
}

func TestConcurrentRequests(t *testing.T) {
	z, _ := newTestZone(t, nil)
	usages := []audio.Usage{
		audio.UsageMedia,
		audio.UsageAssistanceNavigationGuidance,
		audio.UsageVoiceCommunication,
		audio.UsageAlarm,
		audio.UsageNotification,
	}
	gains := []audio.FocusChange{
		audio.FocusGain,
		audio.FocusGainTransient,
		audio.FocusGainTransientMayDuck,
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				info := request(string(rune('a'+worker)), usages[(worker+j)%len(usages)], gains[j%len(gains)])
				z.OnFocusRequest(info)
				if j%3 == 0 {
					z.OnFocusAbandon(info)
				}
			}
		}(i)
	}
	wg.Wait()

	requireConsistent(t, z)
}
