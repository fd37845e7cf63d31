package audio

import (
	"fmt"
	"strconv"
	"strings"
)

// Usage is the audio usage attribute a client plays with.
type Usage int

const (
	UsageUnknown                       Usage = 0
	UsageMedia                         Usage = 1
	UsageVoiceCommunication            Usage = 2
	UsageVoiceCommunicationSignalling  Usage = 3
	UsageAlarm                         Usage = 4
	UsageNotification                  Usage = 5
	UsageNotificationRingtone          Usage = 6
	UsageNotificationCommunicationReq  Usage = 7
	UsageNotificationCommunicationInst Usage = 8
	UsageNotificationCommunicationDel  Usage = 9
	UsageNotificationEvent             Usage = 10
	UsageAssistanceAccessibility       Usage = 11
	UsageAssistanceNavigationGuidance  Usage = 12
	UsageAssistanceSonification        Usage = 13
	UsageGame                          Usage = 14
	UsageVirtualSource                 Usage = 15
	UsageAssistant                     Usage = 16
)

// DefaultUsage is applied to volume keys when nothing more specific is playing.
const DefaultUsage = UsageMedia

var usageToContext = map[Usage]Context{
	UsageUnknown:                       ContextMusic,
	UsageMedia:                         ContextMusic,
	UsageVoiceCommunication:            ContextCall,
	UsageVoiceCommunicationSignalling:  ContextCall,
	UsageAlarm:                         ContextAlarm,
	UsageNotification:                  ContextNotification,
	UsageNotificationRingtone:          ContextCallRing,
	UsageNotificationCommunicationReq:  ContextNotification,
	UsageNotificationCommunicationInst: ContextNotification,
	UsageNotificationCommunicationDel:  ContextNotification,
	UsageNotificationEvent:             ContextNotification,
	UsageAssistanceAccessibility:       ContextNavigation,
	UsageAssistanceNavigationGuidance:  ContextNavigation,
	UsageAssistanceSonification:        ContextSystemSound,
	UsageGame:                          ContextMusic,
	UsageVirtualSource:                 ContextInvalid,
	UsageAssistant:                     ContextVoiceCommand,
}

var usageNames = map[Usage]string{
	UsageUnknown:                       "USAGE_UNKNOWN",
	UsageMedia:                         "USAGE_MEDIA",
	UsageVoiceCommunication:            "USAGE_VOICE_COMMUNICATION",
	UsageVoiceCommunicationSignalling:  "USAGE_VOICE_COMMUNICATION_SIGNALLING",
	UsageAlarm:                         "USAGE_ALARM",
	UsageNotification:                  "USAGE_NOTIFICATION",
	UsageNotificationRingtone:          "USAGE_NOTIFICATION_RINGTONE",
	UsageNotificationCommunicationReq:  "USAGE_NOTIFICATION_COMMUNICATION_REQUEST",
	UsageNotificationCommunicationInst: "USAGE_NOTIFICATION_COMMUNICATION_INSTANT",
	UsageNotificationCommunicationDel:  "USAGE_NOTIFICATION_COMMUNICATION_DELAYED",
	UsageNotificationEvent:             "USAGE_NOTIFICATION_EVENT",
	UsageAssistanceAccessibility:       "USAGE_ASSISTANCE_ACCESSIBILITY",
	UsageAssistanceNavigationGuidance:  "USAGE_ASSISTANCE_NAVIGATION_GUIDANCE",
	UsageAssistanceSonification:        "USAGE_ASSISTANCE_SONIFICATION",
	UsageGame:                          "USAGE_GAME",
	UsageVirtualSource:                 "USAGE_VIRTUAL_SOURCE",
	UsageAssistant:                     "USAGE_ASSISTANT",
}

// String returns the platform name of the usage
func (u Usage) String() string {
	if name, ok := usageNames[u]; ok {
		return name
	}
	return fmt.Sprintf("unknown usage %d", int(u))
}

// ParseUsage accepts a platform name ("USAGE_MEDIA"), the name without its
// prefix ("media"), or the numeric value.
func ParseUsage(name string) (Usage, error) {
	name = strings.TrimSpace(name)
	if n, err := strconv.Atoi(name); err == nil {
		if _, ok := usageNames[Usage(n)]; ok {
			return Usage(n), nil
		}
		return UsageUnknown, fmt.Errorf("unknown usage %d", n)
	}
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "USAGE_") {
		upper = "USAGE_" + upper
	}
	for u, n := range usageNames {
		if n == upper {
			return u, nil
		}
	}
	return UsageUnknown, fmt.Errorf("unknown usage %q", name)
}

// ContextForUsage classifies a usage. Unrecognized usages map to ContextInvalid.
func ContextForUsage(u Usage) Context {
	if c, ok := usageToContext[u]; ok {
		return c
	}
	return ContextInvalid
}

// UsagesForContexts returns every known usage whose context is in contexts,
// in ascending usage order.
func UsagesForContexts(contexts []Context) []Usage {
	want := make(map[Context]bool, len(contexts))
	for _, c := range contexts {
		want[c] = true
	}
	var out []Usage
	for u := UsageUnknown; u <= UsageAssistant; u++ {
		if want[usageToContext[u]] {
			out = append(out, u)
		}
	}
	return out
}

// StaticResolver classifies usages with the fixed platform table.
type StaticResolver struct{}

// ContextForUsage implements the resolver contract used by focus arbitration
func (StaticResolver) ContextForUsage(u Usage) Context {
	return ContextForUsage(u)
}
