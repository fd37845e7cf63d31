package zone

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
)

var busAddress = regexp.MustCompile(`^bus(\d+)_\w+$`)

// ParseBusNumber extracts the bus number from a device address such as
// "bus0_media_out". Addresses that do not follow the pattern return -1.
func ParseBusNumber(address string) int {
	m := busAddress.FindStringSubmatch(address)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// Device is one output bus and its gain stage. Gains are in millibels.
type Device struct {
	Address     string
	BusNumber   int
	MinGain     int
	MaxGain     int
	DefaultGain int
	StepValue   int

	currentGain int
}

// NewDevice describes the bus at address
func NewDevice(address string, minGain, maxGain, defaultGain, step int) (*Device, error) {
	bus := ParseBusNumber(address)
	if bus < 0 {
		return nil, fmt.Errorf("device %q: address is not a bus address", address)
	}
	if step <= 0 {
		return nil, fmt.Errorf("device %q: step value must be positive, got %d", address, step)
	}
	if minGain > maxGain {
		return nil, fmt.Errorf("device %q: min gain %d above max gain %d", address, minGain, maxGain)
	}
	if defaultGain < minGain || defaultGain > maxGain {
		return nil, fmt.Errorf("device %q: default gain %d outside [%d, %d]", address, defaultGain, minGain, maxGain)
	}
	return &Device{
		Address:     address,
		BusNumber:   bus,
		MinGain:     minGain,
		MaxGain:     maxGain,
		DefaultGain: defaultGain,
		StepValue:   step,
		currentGain: defaultGain,
	}, nil
}

// CurrentGain returns the last gain applied to the bus
func (d *Device) CurrentGain() int {
	return d.currentGain
}

// SetCurrentGain applies a gain to the bus
func (d *Device) SetCurrentGain(millibels int) {
	d.currentGain = millibels
}

func (d *Device) String() string {
	return fmt.Sprintf("Device(bus=%d address=%s)", d.BusNumber, d.Address)
}

// Dump writes the device's gain configuration
func (d *Device) Dump(w io.Writer, indent string) {
	fmt.Fprintf(w, "%sDevice(%s) bus %d\n", indent, d.Address, d.BusNumber)
	fmt.Fprintf(w, "%s\tGain values (min / max / default / current / step): %d %d %d %d %d\n",
		indent, d.MinGain, d.MaxGain, d.DefaultGain, d.currentGain, d.StepValue)
}
