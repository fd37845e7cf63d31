package caraudio

import (
	"sort"
	"sync"
)

// AudioPolicy pins a uid's playback to a set of output devices.
type AudioPolicy interface {
	// SetUIDDeviceAffinity routes uid to the given device addresses.
	SetUIDDeviceAffinity(uid int, addresses []string) bool
	// RemoveUIDDeviceAffinity drops any routing for uid.
	RemoveUIDDeviceAffinity(uid int) bool
}

// AffinityTable is an in-memory AudioPolicy
type AffinityTable struct {
	mu         sync.RWMutex
	affinities map[int][]string
}

// NewAffinityTable creates an empty table
func NewAffinityTable() *AffinityTable {
	return &AffinityTable{affinities: make(map[int][]string)}
}

// SetUIDDeviceAffinity implements AudioPolicy. An empty device list is refused.
func (t *AffinityTable) SetUIDDeviceAffinity(uid int, addresses []string) bool {
	if len(addresses) == 0 {
		return false
	}
	devices := make([]string, len(addresses))
	copy(devices, addresses)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.affinities[uid] = devices
	return true
}

// RemoveUIDDeviceAffinity implements AudioPolicy
func (t *AffinityTable) RemoveUIDDeviceAffinity(uid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.affinities, uid)
	return true
}

// Affinity returns the devices uid is pinned to
func (t *AffinityTable) Affinity(uid int) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	devices, ok := t.affinities[uid]
	if !ok {
		return nil, false
	}
	out := make([]string, len(devices))
	copy(out, devices)
	return out, true
}

// UIDs lists every pinned uid in ascending order
func (t *AffinityTable) UIDs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, 0, len(t.affinities))
	for uid := range t.affinities {
		out = append(out, uid)
	}
	sort.Ints(out)
	return out
}
