package focus

import (
	"fmt"
	"io"
	"strings"
)

// EntrySnapshot is a read-only view of one focus request
type EntrySnapshot struct {
	ClientID    string   `json:"client_id"`
	UID         int      `json:"uid"`
	PackageName string   `json:"package_name,omitempty"`
	Usage       string   `json:"usage"`
	Context     string   `json:"context"`
	GainRequest string   `json:"gain_request"`
	Blockers    []string `json:"blockers,omitempty"`
	DuckedLoss  bool     `json:"ducked_loss,omitempty"`
}

// ZoneSnapshot is the focus state of one zone
type ZoneSnapshot struct {
	ZoneID  int             `json:"zone_id"`
	Holders []EntrySnapshot `json:"holders"`
	Losers  []EntrySnapshot `json:"losers"`
}

// Snapshot copies the zone's holders and losers ordered by client id
func (z *Zone) Snapshot() ZoneSnapshot {
	z.mu.Lock()
	defer z.mu.Unlock()

	snap := ZoneSnapshot{
		ZoneID:  z.id,
		Holders: make([]EntrySnapshot, 0, len(z.holders)),
		Losers:  make([]EntrySnapshot, 0, len(z.losers)),
	}
	for _, e := range sortedEntries(z.holders) {
		snap.Holders = append(snap.Holders, e.snapshot())
	}
	for _, e := range sortedEntries(z.losers) {
		snap.Losers = append(snap.Losers, e.snapshot())
	}
	return snap
}

// Dump writes a human readable listing of the zone's focus state
func (z *Zone) Dump(w io.Writer, indent string) {
	snap := z.Snapshot()

	fmt.Fprintf(w, "%s*Zone %d focus*\n", indent, snap.ZoneID)
	fmt.Fprintf(w, "%s\tCurrent Focus Holders:\n", indent)
	for _, h := range snap.Holders {
		fmt.Fprintf(w, "%s\t\t%s\n", indent, h.line())
	}
	fmt.Fprintf(w, "%s\tTransient Focus Losers:\n", indent)
	for _, l := range snap.Losers {
		fmt.Fprintf(w, "%s\t\t%s blocked by [%s]\n", indent, l.line(), strings.Join(l.Blockers, ", "))
	}
}

func (e *entry) snapshot() EntrySnapshot {
	return EntrySnapshot{
		ClientID:    e.clientID(),
		UID:         e.info.ClientUID,
		PackageName: e.info.PackageName,
		Usage:       e.info.Attributes.Usage.String(),
		Context:     e.context.String(),
		GainRequest: e.info.GainRequest.String(),
		Blockers:    e.blockerIDs(),
		DuckedLoss:  e.receivedLossTransientCanDuck,
	}
}

func (s EntrySnapshot) line() string {
	return fmt.Sprintf("%s uid=%d usage=%s context=%s gain=%s", s.ClientID, s.UID, s.Usage, s.Context, s.GainRequest)
}
