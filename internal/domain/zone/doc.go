// Package zone models the audio zones of a vehicle: output bus devices,
// volume groups binding contexts to buses, and the zone configuration file.
//
// A configuration is TOML or YAML:
//
//	version = 1
//
//	[[devices]]
//	address = "bus0_media_out"
//	min_gain = -3200
//	max_gain = 600
//	default_gain = -600
//	step = 100
//
//	[[zones]]
//	name = "primary zone"
//	primary = true
//	displays = [0]
//
//	[[zones.groups]]
//	[[zones.groups.devices]]
//	address = "bus0_media_out"
//	contexts = ["music"]
//
// Exactly one zone is primary and gets id 0. Display ports are unique across
// zones, and every bus in a group shares one step value.
package zone
