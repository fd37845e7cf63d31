package focus

import "github.com/GriffinCanCode/carfocus/internal/domain/audio"

// Interaction is the relationship between a playing context and a requested one.
type Interaction int

const (
	InteractionReject     Interaction = 0 // Focus not granted
	InteractionExclusive  Interaction = 1 // Focus granted, others lose focus
	InteractionConcurrent Interaction = 2 // Focus granted, others keep focus
)

func (i Interaction) String() string {
	switch i {
	case InteractionReject:
		return "REJECT"
	case InteractionExclusive:
		return "EXCLUSIVE"
	case InteractionConcurrent:
		return "CONCURRENT"
	default:
		return "UNKNOWN"
	}
}

// Row selected by the playing context, column by the incoming request.
// The table is not symmetric.
var interactionMatrix = [audio.NumContexts][audio.NumContexts]Interaction{
	// Invalid, Music, Nav, Voice, Ring, Call, Alarm, Notification, System
	{0, 0, 0, 0, 0, 0, 0, 0, 0}, // Invalid
	{0, 1, 2, 1, 1, 1, 1, 2, 2}, // Music
	{0, 2, 2, 1, 2, 1, 2, 2, 2}, // Nav
	{0, 2, 0, 2, 1, 1, 0, 0, 0}, // Voice
	{0, 0, 2, 2, 2, 2, 0, 0, 2}, // Ring
	{0, 0, 2, 0, 2, 2, 2, 2, 0}, // Call
	{0, 2, 2, 1, 1, 1, 2, 2, 2}, // Alarm
	{0, 2, 2, 1, 1, 1, 2, 2, 2}, // Notification
	{0, 2, 2, 1, 1, 1, 2, 2, 2}, // System
}

// InteractionFor returns how a request for requested affects a client playing
// holder. Contexts outside the table are rejected.
func InteractionFor(holder, requested audio.Context) Interaction {
	if holder < 0 || holder >= audio.NumContexts || requested < 0 || requested >= audio.NumContexts {
		return InteractionReject
	}
	return interactionMatrix[holder][requested]
}
