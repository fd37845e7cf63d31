package zone

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
)

var (
	// ErrGainOutOfRange is returned when a gain index maps outside the group's range
	ErrGainOutOfRange = errors.New("gain out of range")
	// ErrStepMismatch is returned when buses in one group use different step values
	ErrStepMismatch = errors.New("gain controls within one group must have same step value")
)

// NoStoredIndex marks a group without a remembered volume
const NoStoredIndex = -1

// VolumeGroup is a set of contexts sharing one volume, applied to every bus
// bound to it. Gain indexes map linearly onto millibels:
// gain = minGain + index*step.
//
// A VolumeGroup is not safe for concurrent use; the audio service
// serializes access.
type VolumeGroup struct {
	zoneID int
	id     int

	contextToBus map[audio.Context]int
	busToDevice  map[int]*Device

	defaultGain int
	maxGain     int
	minGain     int
	stepSize    int

	storedGainIndex  int
	currentGainIndex int
}

// NewVolumeGroup creates an empty group. storedIndex is the volume remembered
// from a previous run, or NoStoredIndex.
func NewVolumeGroup(zoneID, id, storedIndex int) *VolumeGroup {
	return &VolumeGroup{
		zoneID:           zoneID,
		id:               id,
		contextToBus:     make(map[audio.Context]int),
		busToDevice:      make(map[int]*Device),
		defaultGain:      math.MinInt,
		maxGain:          math.MinInt,
		minGain:          math.MaxInt,
		storedGainIndex:  storedIndex,
		currentGainIndex: -1,
	}
}

// ID returns the group id within its zone
func (g *VolumeGroup) ID() int {
	return g.id
}

// ZoneID returns the zone the group belongs to
func (g *VolumeGroup) ZoneID() int {
	return g.zoneID
}

// Bind routes a context to a bus. Binding may move the group's min and max,
// so all binds happen at startup before any index is read or set.
func (g *VolumeGroup) Bind(context audio.Context, busNumber int, device *Device) error {
	if device == nil {
		return fmt.Errorf("bind %s to bus %d: no such device", context, busNumber)
	}
	if len(g.busToDevice) == 0 {
		g.stepSize = device.StepValue
	} else if device.StepValue != g.stepSize {
		return fmt.Errorf("bind %s to %s: %w", context, device.Address, ErrStepMismatch)
	}

	g.contextToBus[context] = busNumber
	g.busToDevice[busNumber] = device

	// The highest default seen becomes the group default
	if device.DefaultGain > g.defaultGain {
		g.defaultGain = device.DefaultGain
	}
	if device.MaxGain > g.maxGain {
		g.maxGain = device.MaxGain
	}
	if device.MinGain < g.minGain {
		g.minGain = device.MinGain
	}

	if g.storedGainIndex < g.MinGainIndex() || g.storedGainIndex > g.MaxGainIndex() {
		g.currentGainIndex = g.indexForGain(g.defaultGain)
	} else {
		g.currentGainIndex = g.storedGainIndex
	}
	return nil
}

func (g *VolumeGroup) gainForIndex(index int) int {
	return g.minGain + index*g.stepSize
}

func (g *VolumeGroup) indexForGain(millibels int) int {
	if g.stepSize == 0 {
		return 0
	}
	return (millibels - g.minGain) / g.stepSize
}

// MinGainIndex is always zero once a bus is bound
func (g *VolumeGroup) MinGainIndex() int {
	return g.indexForGain(g.minGain)
}

// MaxGainIndex returns the highest settable index
func (g *VolumeGroup) MaxGainIndex() int {
	return g.indexForGain(g.maxGain)
}

// DefaultGainIndex returns the index of the group default gain
func (g *VolumeGroup) DefaultGainIndex() int {
	return g.indexForGain(g.defaultGain)
}

// CurrentGainIndex returns the index last set, -1 before any bind
func (g *VolumeGroup) CurrentGainIndex() int {
	return g.currentGainIndex
}

// SetCurrentGainIndex applies index to every bus in the group
func (g *VolumeGroup) SetCurrentGainIndex(index int) error {
	if len(g.busToDevice) == 0 || index < g.MinGainIndex() || index > g.MaxGainIndex() {
		return fmt.Errorf("%w index %d outside [%d, %d]", ErrGainOutOfRange, index, g.MinGainIndex(), g.MaxGainIndex())
	}
	gain := g.gainForIndex(index)

	for _, d := range g.busToDevice {
		d.SetCurrentGain(gain)
	}
	g.currentGainIndex = index
	g.storedGainIndex = index
	return nil
}

// Contexts lists the contexts routed through the group in ascending order
func (g *VolumeGroup) Contexts() []audio.Context {
	out := make([]audio.Context, 0, len(g.contextToBus))
	for c := range g.contextToBus {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasContext reports whether c is routed through the group
func (g *VolumeGroup) HasContext(c audio.Context) bool {
	_, ok := g.contextToBus[c]
	return ok
}

// ContextsForBus lists the contexts bound to one bus
func (g *VolumeGroup) ContextsForBus(busNumber int) []audio.Context {
	var out []audio.Context
	for _, c := range g.Contexts() {
		if g.contextToBus[c] == busNumber {
			out = append(out, c)
		}
	}
	return out
}

// BusNumbers lists the group's buses in ascending order
func (g *VolumeGroup) BusNumbers() []int {
	out := make([]int, 0, len(g.busToDevice))
	for bus := range g.busToDevice {
		out = append(out, bus)
	}
	sort.Ints(out)
	return out
}

// Devices returns the bound devices ordered by bus number
func (g *VolumeGroup) Devices() []*Device {
	buses := g.BusNumbers()
	out := make([]*Device, 0, len(buses))
	for _, bus := range buses {
		out = append(out, g.busToDevice[bus])
	}
	return out
}

// DeviceForContext returns the bus device a context plays on
func (g *VolumeGroup) DeviceForContext(c audio.Context) (*Device, bool) {
	bus, ok := g.contextToBus[c]
	if !ok {
		return nil, false
	}
	d, ok := g.busToDevice[bus]
	return d, ok
}

func (g *VolumeGroup) String() string {
	return fmt.Sprintf("VolumeGroup id: %d currentGainIndex: %d contexts: %v buses: %v",
		g.id, g.currentGainIndex, g.Contexts(), g.BusNumbers())
}

// Dump writes the group's gains and routing
func (g *VolumeGroup) Dump(w io.Writer, indent string) {
	fmt.Fprintf(w, "%sVolumeGroup(%d)\n", indent, g.id)
	fmt.Fprintf(w, "%sGain values (min / max / default / current): %d %d %d %d\n",
		indent, g.minGain, g.maxGain, g.defaultGain, g.gainForIndex(g.currentGainIndex))
	fmt.Fprintf(w, "%sGain indexes (min / max / default / current): %d %d %d %d\n",
		indent, g.MinGainIndex(), g.MaxGainIndex(), g.DefaultGainIndex(), g.currentGainIndex)
	for _, c := range g.Contexts() {
		fmt.Fprintf(w, "%sContext: %s -> Bus: %d\n", indent, c, g.contextToBus[c])
	}
	for _, d := range g.Devices() {
		d.Dump(w, indent)
	}
	fmt.Fprintln(w)
}
