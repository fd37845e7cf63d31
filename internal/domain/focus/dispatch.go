package focus

import (
	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
)

// Dispatcher delivers focus events to clients. Delivery is best effort: the
// arbitrator logs a failed delivery and keeps its own state.
type Dispatcher interface {
	// DispatchFocusChange tells a client it gained or lost focus.
	DispatchFocusChange(info audio.FocusInfo, change audio.FocusChange) audio.RequestResult
	// SetFocusRequestResult posts the answer to a focus request.
	SetFocusRequestResult(info audio.FocusInfo, result audio.RequestResult)
}

// ContextResolver classifies usages into contexts.
type ContextResolver interface {
	ContextForUsage(usage audio.Usage) audio.Context
}

// PermissionChecker decides whether a package may receive ducking events.
type PermissionChecker interface {
	CanReceiveDuckingEvents(packageName string) bool
}

// Host owns the uid routing table the router consults.
type Host interface {
	ContextResolver
	// ZoneIDForUID returns the zone a uid renders to, mapping unknown uids
	// to the primary zone.
	ZoneIDForUID(uid int) int
	// AudioZoneIDs lists the configured zones.
	AudioZoneIDs() []int
}

// MultiDispatcher fans events out to several sinks. A change counts as
// delivered when any sink accepted it.
type MultiDispatcher []Dispatcher

// DispatchFocusChange implements Dispatcher
func (m MultiDispatcher) DispatchFocusChange(info audio.FocusInfo, change audio.FocusChange) audio.RequestResult {
	result := audio.RequestFailed
	for _, d := range m {
		if d == nil {
			continue
		}
		if d.DispatchFocusChange(info, change) == audio.RequestGranted {
			result = audio.RequestGranted
		}
	}
	return result
}

// SetFocusRequestResult implements Dispatcher
func (m MultiDispatcher) SetFocusRequestResult(info audio.FocusInfo, result audio.RequestResult) {
	for _, d := range m {
		if d != nil {
			d.SetFocusRequestResult(info, result)
		}
	}
}

type noDuckingEvents struct{}

func (noDuckingEvents) CanReceiveDuckingEvents(string) bool { return false }

type discardDispatcher struct{}

func (discardDispatcher) DispatchFocusChange(audio.FocusInfo, audio.FocusChange) audio.RequestResult {
	return audio.RequestFailed
}

func (discardDispatcher) SetFocusRequestResult(audio.FocusInfo, audio.RequestResult) {}
