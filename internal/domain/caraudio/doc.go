// Package caraudio hosts the car audio zones.
//
// Service keeps the uid to zone mapping (mirrored into an AudioPolicy as
// device affinities), per-zone volume groups, master mute, and owns the focus
// arbitrators when car focus is enabled. Moving a uid between zones carries
// its focus along: everything it held or waited for is transiently lost in the
// old zone and requested again in the new one.
//
// With dynamic routing disabled the service runs in legacy mode: three stream
// types stand in for volume groups and zone and focus operations return
// ErrDynamicRoutingDisabled.
package caraudio
