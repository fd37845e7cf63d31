package audio

import (
	"fmt"
	"strings"
)

// Context is the coarse audio purpose used as the arbitration key.
type Context int

const (
	ContextInvalid      Context = 0
	ContextMusic        Context = 1
	ContextNavigation   Context = 2
	ContextVoiceCommand Context = 3
	ContextCallRing     Context = 4
	ContextCall         Context = 5
	ContextAlarm        Context = 6
	ContextNotification Context = 7
	ContextSystemSound  Context = 8
)

// NumContexts is the number of contexts including ContextInvalid.
const NumContexts = 9

var contextNames = [NumContexts]string{
	ContextInvalid:      "invalid",
	ContextMusic:        "music",
	ContextNavigation:   "navigation",
	ContextVoiceCommand: "voice_command",
	ContextCallRing:     "call_ring",
	ContextCall:         "call",
	ContextAlarm:        "alarm",
	ContextNotification: "notification",
	ContextSystemSound:  "system_sound",
}

// String returns the configuration name of the context
func (c Context) String() string {
	if !c.Valid() && c != ContextInvalid {
		return fmt.Sprintf("context(%d)", int(c))
	}
	return contextNames[c]
}

// Valid reports whether c is a playable context
func (c Context) Valid() bool {
	return c > ContextInvalid && c < NumContexts
}

// ParseContext maps a configuration name to a context. Unknown names map to
// ContextInvalid.
func ParseContext(name string) Context {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range contextNames {
		if i != int(ContextInvalid) && n == name {
			return Context(i)
		}
	}
	return ContextInvalid
}

// AllContexts returns every playable context in numeric order.
func AllContexts() []Context {
	out := make([]Context, 0, NumContexts-1)
	for c := ContextMusic; c < NumContexts; c++ {
		out = append(out, c)
	}
	return out
}
