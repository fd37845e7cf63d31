package zone

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
)

// SupportedVersion is the only configuration version understood
const SupportedVersion = 1

// ErrNoPrimaryZone is returned when a configuration lacks a primary zone
var ErrNoPrimaryZone = errors.New("requires one primary zone")

// Format is a configuration file encoding
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Config is the on-disk zone configuration. Devices describes the output
// buses the platform exposes; zones group them.
type Config struct {
	Version int            `toml:"version" yaml:"version"`
	Devices []DeviceConfig `toml:"devices" yaml:"devices"`
	Zones   []ZoneConfig   `toml:"zones" yaml:"zones"`
}

// DeviceConfig is one output bus. Gains are in millibels.
type DeviceConfig struct {
	Address     string `toml:"address" yaml:"address"`
	MinGain     int    `toml:"min_gain" yaml:"min_gain"`
	MaxGain     int    `toml:"max_gain" yaml:"max_gain"`
	DefaultGain int    `toml:"default_gain" yaml:"default_gain"`
	Step        int    `toml:"step" yaml:"step"`
}

// ZoneConfig is one audio zone
type ZoneConfig struct {
	Name     string        `toml:"name" yaml:"name"`
	Primary  bool          `toml:"primary" yaml:"primary"`
	Displays []int         `toml:"displays" yaml:"displays"`
	Groups   []GroupConfig `toml:"groups" yaml:"groups"`
}

// GroupConfig is one volume group. VolumeIndex is the remembered volume;
// nil starts at the default gain.
type GroupConfig struct {
	VolumeIndex *int                `toml:"volume_index" yaml:"volume_index"`
	Devices     []GroupDeviceConfig `toml:"devices" yaml:"devices"`
}

// GroupDeviceConfig routes contexts to a bus
type GroupDeviceConfig struct {
	Address  string   `toml:"address" yaml:"address"`
	Contexts []string `toml:"contexts" yaml:"contexts"`
}

// LoadFile reads a TOML or YAML configuration, chosen by extension
func LoadFile(path string) ([]*Zone, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		format = FormatTOML
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("unsupported zone configuration extension %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zone configuration: %w", err)
	}
	zones, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return zones, nil
}

// Parse decodes and builds a configuration
func Parse(data []byte, format Format) ([]*Zone, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return Build(cfg)
}

// Build validates cfg and creates its zones, sorted by id. The primary zone
// gets id 0; the others are numbered from 1 in file order.
func Build(cfg Config) ([]*Zone, error) {
	if cfg.Version != SupportedVersion {
		return nil, fmt.Errorf("support version: %d only, got version: %d", SupportedVersion, cfg.Version)
	}

	devices := make(map[int]*Device, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		d, err := NewDevice(dc.Address, dc.MinGain, dc.MaxGain, dc.DefaultGain, dc.Step)
		if err != nil {
			return nil, err
		}
		if _, dup := devices[d.BusNumber]; dup {
			return nil, fmt.Errorf("bus %d declared twice", d.BusNumber)
		}
		devices[d.BusNumber] = d
	}

	var (
		zones         []*Zone
		hasPrimary    bool
		nextSecondary = PrimaryZoneID + 1
		ports         = make(map[int]string)
	)
	for _, zc := range cfg.Zones {
		id := PrimaryZoneID
		if zc.Primary {
			if hasPrimary {
				return nil, errors.New("only one primary zone is allowed")
			}
			hasPrimary = true
		} else {
			id = nextSecondary
			nextSecondary++
		}

		z := New(id, zc.Name)
		for _, port := range zc.Displays {
			if port < 0 || port > 255 {
				return nil, fmt.Errorf("zone %q: display port %d is not a valid port", zc.Name, port)
			}
			if owner, dup := ports[port]; dup {
				return nil, fmt.Errorf("port id %d is already associated with zone %q", port, owner)
			}
			ports[port] = zc.Name
			z.AddDisplayPort(uint8(port))
		}

		for groupID, gc := range zc.Groups {
			g, err := buildGroup(id, groupID, gc, devices)
			if err != nil {
				return nil, fmt.Errorf("zone %q: %w", zc.Name, err)
			}
			z.AddVolumeGroup(g)
		}
		if err := z.ValidateVolumeGroups(); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}

	if !hasPrimary {
		return nil, ErrNoPrimaryZone
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID() < zones[j].ID() })
	return zones, nil
}

func buildGroup(zoneID, groupID int, gc GroupConfig, devices map[int]*Device) (*VolumeGroup, error) {
	stored := NoStoredIndex
	if gc.VolumeIndex != nil {
		stored = *gc.VolumeIndex
	}
	g := NewVolumeGroup(zoneID, groupID, stored)

	for _, dc := range gc.Devices {
		bus := ParseBusNumber(dc.Address)
		if bus < 0 {
			return nil, fmt.Errorf("group %d: %q is not a bus address", groupID, dc.Address)
		}
		device, ok := devices[bus]
		if !ok {
			return nil, fmt.Errorf("group %d: no device declared for bus %d", groupID, bus)
		}
		for _, name := range dc.Contexts {
			c := audio.ParseContext(name)
			if c == audio.ContextInvalid {
				return nil, fmt.Errorf("group %d: unknown context %q", groupID, name)
			}
			if err := g.Bind(c, bus, device); err != nil {
				return nil, fmt.Errorf("group %d: %w", groupID, err)
			}
		}
	}
	return g, nil
}

// DefaultConfig is a two zone layout: a primary cabin zone with the usual
// per-context buses and one rear seat zone on a single bus.
func DefaultConfig() Config {
	bus := func(address string) DeviceConfig {
		return DeviceConfig{Address: address, MinGain: -3200, MaxGain: 600, DefaultGain: -600, Step: 100}
	}
	return Config{
		Version: SupportedVersion,
		Devices: []DeviceConfig{
			bus("bus0_media_out"),
			bus("bus1_navigation_out"),
			bus("bus2_voice_command_out"),
			bus("bus3_call_ring_out"),
			bus("bus4_call_out"),
			bus("bus5_alarm_out"),
			bus("bus6_notification_out"),
			bus("bus7_system_sound_out"),
			bus("bus100_rear_seat"),
		},
		Zones: []ZoneConfig{
			{
				Name:     "primary zone",
				Primary:  true,
				Displays: []int{0},
				Groups: []GroupConfig{
					{Devices: []GroupDeviceConfig{
						{Address: "bus0_media_out", Contexts: []string{"music"}},
						{Address: "bus3_call_ring_out", Contexts: []string{"call_ring"}},
						{Address: "bus6_notification_out", Contexts: []string{"notification"}},
						{Address: "bus7_system_sound_out", Contexts: []string{"system_sound"}},
					}},
					{Devices: []GroupDeviceConfig{
						{Address: "bus1_navigation_out", Contexts: []string{"navigation"}},
						{Address: "bus2_voice_command_out", Contexts: []string{"voice_command"}},
					}},
					{Devices: []GroupDeviceConfig{
						{Address: "bus4_call_out", Contexts: []string{"call"}},
					}},
					{Devices: []GroupDeviceConfig{
						{Address: "bus5_alarm_out", Contexts: []string{"alarm"}},
					}},
				},
			},
			{
				Name:     "rear seat zone",
				Displays: []int{1},
				Groups: []GroupConfig{
					{Devices: []GroupDeviceConfig{
						{Address: "bus100_rear_seat", Contexts: []string{
							"music", "navigation", "voice_command", "call_ring",
							"call", "alarm", "notification", "system_sound",
						}},
					}},
				},
			},
		},
	}
}
