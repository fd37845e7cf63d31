package audio

import (
	"fmt"
	"strings"
)

// FocusChange is a focus gain request type or a focus change event.
type FocusChange int

const (
	FocusNone                   FocusChange = 0
	FocusGain                   FocusChange = 1
	FocusGainTransient          FocusChange = 2
	FocusGainTransientMayDuck   FocusChange = 3
	FocusGainTransientExclusive FocusChange = 4
	FocusLoss                   FocusChange = -1
	FocusLossTransient          FocusChange = -2
	FocusLossTransientCanDuck   FocusChange = -3
)

var focusChangeNames = map[FocusChange]string{
	FocusNone:                   "NONE",
	FocusGain:                   "GAIN",
	FocusGainTransient:          "GAIN_TRANSIENT",
	FocusGainTransientMayDuck:   "GAIN_TRANSIENT_MAY_DUCK",
	FocusGainTransientExclusive: "GAIN_TRANSIENT_EXCLUSIVE",
	FocusLoss:                   "LOSS",
	FocusLossTransient:          "LOSS_TRANSIENT",
	FocusLossTransientCanDuck:   "LOSS_TRANSIENT_CAN_DUCK",
}

func (f FocusChange) String() string {
	if name, ok := focusChangeNames[f]; ok {
		return name
	}
	return fmt.Sprintf("unknown event %d", int(f))
}

// IsGainRequest reports whether f is one of the four gain request types
func (f FocusChange) IsGainRequest() bool {
	return f >= FocusGain && f <= FocusGainTransientExclusive
}

// ParseFocusChange accepts the names returned by String, case-insensitively.
func ParseFocusChange(name string) (FocusChange, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for f, n := range focusChangeNames {
		if n == name {
			return f, nil
		}
	}
	return FocusNone, fmt.Errorf("unknown focus change %q", name)
}

// RequestResult is the outcome of a focus request or a dispatch.
type RequestResult int

const (
	RequestFailed  RequestResult = 0
	RequestGranted RequestResult = 1
)

func (r RequestResult) String() string {
	if r == RequestGranted {
		return "granted"
	}
	return "failed"
}

// FocusFlags carries optional request behaviors.
type FocusFlags int

const (
	// FlagPausesOnDuckableLoss asks for a loss event instead of being ducked.
	FlagPausesOnDuckableLoss FocusFlags = 1 << 1
)

// Attributes describe how a client will play.
type Attributes struct {
	Usage Usage `json:"usage"`
	// ZoneID requests an explicit zone instead of the uid mapping.
	ZoneID *int `json:"zone_id,omitempty"`
	// ReceiveDuckingEvents asks to be told about duckable losses. Only honored
	// for packages holding the ducking-events entitlement.
	ReceiveDuckingEvents bool `json:"receive_ducking_events,omitempty"`
}

// FocusInfo identifies one client's focus request.
type FocusInfo struct {
	ClientID    string      `json:"client_id"`
	ClientUID   int         `json:"uid"`
	PackageName string      `json:"package_name"`
	GainRequest FocusChange `json:"gain_request"`
	Flags       FocusFlags  `json:"flags"`
	Attributes  Attributes  `json:"attributes"`
}

// PausesOnDuckableLoss reports whether the client set FlagPausesOnDuckableLoss
func (i FocusInfo) PausesOnDuckableLoss() bool {
	return i.Flags&FlagPausesOnDuckableLoss != 0
}
