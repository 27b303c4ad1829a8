// Package devicestore holds the most recent scan snapshot with thread
// safety. Each scan replaces the snapshot wholesale; results are never
// merged, and nothing is persisted across restarts.
package devicestore

import (
	"sync"

	"ledlink/blecentral"
	"ledlink/util"
)

// Store manages the last scan result set.
type Store struct {
	mu      sync.Mutex
	devices []blecentral.Device
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Replace swaps in a new snapshot, discarding the old one.
func (s *Store) Replace(devices []blecentral.Device) {
	cp := make([]blecentral.Device, len(devices))
	copy(cp, devices)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = cp
}

// All returns a copy of the snapshot in stored order.
func (s *Store) All() []blecentral.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]blecentral.Device, len(s.devices))
	copy(cp, s.devices)
	return cp
}

// Find returns the device matching the address, comparing normalized
// forms so platform formatting differences do not matter.
func (s *Store) Find(addr string) (blecentral.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if util.SameDevice(d.Addr, addr) {
			return d, true
		}
	}
	return blecentral.Device{}, false
}

// Count returns the number of devices in the snapshot.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}
