package zone

import (
	"errors"
	"fmt"
	"io"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
)

// PrimaryZoneID is the id of the zone every unmapped uid plays in
const PrimaryZoneID = 0

// ErrGroupOutOfRange is returned for a volume group id the zone does not have
var ErrGroupOutOfRange = errors.New("volume group id out of range")

// Zone is an independently routed set of output buses with its own volume
// groups and displays.
type Zone struct {
	id           int
	name         string
	groups       []*VolumeGroup
	displayPorts []uint8
}

// New creates an empty zone
func New(id int, name string) *Zone {
	return &Zone{id: id, name: name}
}

// ID returns the zone id
func (z *Zone) ID() int { return z.id }

// Name returns the configured zone name
func (z *Zone) Name() string { return z.name }

// IsPrimary reports whether this is the primary zone
func (z *Zone) IsPrimary() bool { return z.id == PrimaryZoneID }

// AddVolumeGroup appends a group. Group ids are positions.
func (z *Zone) AddVolumeGroup(g *VolumeGroup) {
	z.groups = append(z.groups, g)
}

// VolumeGroup returns the group with id
func (z *Zone) VolumeGroup(id int) (*VolumeGroup, error) {
	if id < 0 || id >= len(z.groups) {
		return nil, fmt.Errorf("zone %d group %d: %w", z.id, id, ErrGroupOutOfRange)
	}
	return z.groups[id], nil
}

// VolumeGroups returns the zone's groups in id order
func (z *Zone) VolumeGroups() []*VolumeGroup {
	out := make([]*VolumeGroup, len(z.groups))
	copy(out, z.groups)
	return out
}

// VolumeGroupCount returns the number of groups
func (z *Zone) VolumeGroupCount() int {
	return len(z.groups)
}

// VolumeGroupIDForContext returns the id of the group carrying c, or -1
func (z *Zone) VolumeGroupIDForContext(c audio.Context) int {
	for i, g := range z.groups {
		if g.HasContext(c) {
			return i
		}
	}
	return -1
}

// AddDisplayPort attaches a physical display to the zone
func (z *Zone) AddDisplayPort(port uint8) {
	z.displayPorts = append(z.displayPorts, port)
}

// DisplayPorts returns the zone's physical display ports
func (z *Zone) DisplayPorts() []uint8 {
	out := make([]uint8, len(z.displayPorts))
	copy(out, z.displayPorts)
	return out
}

// HasDisplayPort reports whether port belongs to the zone
func (z *Zone) HasDisplayPort(port uint8) bool {
	for _, p := range z.displayPorts {
		if p == port {
			return true
		}
	}
	return false
}

// Devices returns every bus device of the zone, ordered by group then bus
func (z *Zone) Devices() []*Device {
	var out []*Device
	for _, g := range z.groups {
		out = append(out, g.Devices()...)
	}
	return out
}

// DeviceAddresses returns the addresses a uid is pinned to when mapped here
func (z *Zone) DeviceAddresses() []string {
	devices := z.Devices()
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Address)
	}
	return out
}

// ValidateVolumeGroups checks that no context or bus appears in more than one
// group.
func (z *Zone) ValidateVolumeGroups() error {
	contexts := make(map[audio.Context]int)
	buses := make(map[int]int)
	for _, g := range z.groups {
		for _, c := range g.Contexts() {
			if other, ok := contexts[c]; ok {
				return fmt.Errorf("zone %d: context %s in groups %d and %d", z.id, c, other, g.ID())
			}
			contexts[c] = g.ID()
		}
		for _, bus := range g.BusNumbers() {
			if other, ok := buses[bus]; ok {
				return fmt.Errorf("zone %d: bus %d in groups %d and %d", z.id, bus, other, g.ID())
			}
			buses[bus] = g.ID()
		}
	}
	return nil
}

// SynchronizeCurrentGainIndex pushes every group's current volume to its buses
func (z *Zone) SynchronizeCurrentGainIndex() error {
	for _, g := range z.groups {
		if err := g.SetCurrentGainIndex(g.CurrentGainIndex()); err != nil {
			return fmt.Errorf("zone %d: %w", z.id, err)
		}
	}
	return nil
}

func (z *Zone) String() string {
	return fmt.Sprintf("Zone(%d %q groups=%d displays=%v)", z.id, z.name, len(z.groups), z.displayPorts)
}

// Dump writes the zone's groups
func (z *Zone) Dump(w io.Writer, indent string) {
	fmt.Fprintf(w, "%sAudioZone(%s:%d) isPrimary? %t\n", indent, z.name, z.id, z.IsPrimary())
	if len(z.displayPorts) > 0 {
		fmt.Fprintf(w, "%s\tDisplay ports: %v\n", indent, z.displayPorts)
	}
	for _, g := range z.groups {
		g.Dump(w, indent+"\t")
	}
	fmt.Fprintln(w)
}
