package focus

import (
	"sort"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
)

// entry is one accepted focus request plus arbitration bookkeeping. Entries
// are owned by exactly one Zone and only touched under its lock.
type entry struct {
	info    audio.FocusInfo
	context audio.Context

	// Requests that keep this one from regaining focus. Keyed by identity so a
	// replacing request from the same client id is distinct from the one it
	// replaces.
	blockers map[*entry]struct{}

	// Set when the last loss sent was LOSS_TRANSIENT_CAN_DUCK.
	receivedLossTransientCanDuck bool

	// Zone-local sequence number of the latest grant
	grantSeq uint64
}

func newEntry(info audio.FocusInfo, context audio.Context) *entry {
	return &entry{
		info:     info,
		context:  context,
		blockers: make(map[*entry]struct{}),
	}
}

func (e *entry) clientID() string {
	return e.info.ClientID
}

func (e *entry) wantsPauseInsteadOfDucking() bool {
	return e.info.PausesOnDuckableLoss()
}

func (e *entry) addBlocker(b *entry) {
	e.blockers[b] = struct{}{}
}

func (e *entry) removeBlocker(b *entry) {
	delete(e.blockers, b)
}

func (e *entry) blocked() bool {
	return len(e.blockers) > 0
}

func (e *entry) blockerIDs() []string {
	ids := make([]string, 0, len(e.blockers))
	for b := range e.blockers {
		ids = append(ids, b.clientID())
	}
	sort.Strings(ids)
	return ids
}

// sortedEntries returns the map values ordered by client id so scans and
// callbacks happen in a stable order.
func sortedEntries(m map[string]*entry) []*entry {
	out := make([]*entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].clientID() < out[j].clientID()
	})
	return out
}
