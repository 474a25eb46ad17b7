// Package sim is an in-memory radio for running a mesh node without
// hardware. Radios tuned to the same Air hear each other's beacons.
//
// The simulated radio enforces the ordering rules real hardware leaves to
// the caller, so misuse shows up as an error instead of silence.
package sim

import (
	"slices"
	"sync"

	"robotmesh"
)

// Beacon is a peer advertising itself on a channel.
type Beacon struct {
	HardwareID     robotmesh.HardwareID
	Channel        uint8
	SSID           string
	SignalStrength int8
	// Refuse makes the peer ignore association requests: it is heard by
	// scans but never links.
	Refuse bool
}

// Air is the shared medium. Safe for concurrent use.
type Air struct {
	mu      sync.Mutex
	beacons []Beacon
}

// NewAir returns an air carrying the given beacons.
func NewAir(beacons ...Beacon) *Air {
	a := &Air{}
	for _, b := range beacons {
		a.Broadcast(b)
	}
	return a
}

// Broadcast adds a beacon, or replaces the one with the same hardware id.
func (a *Air) Broadcast(b Beacon) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := slices.IndexFunc(a.beacons, func(x Beacon) bool { return x.HardwareID == b.HardwareID })
	if i >= 0 {
		a.beacons[i] = b
		return
	}
	a.beacons = append(a.beacons, b)
}

// Silence removes the beacon with the given hardware id.
func (a *Air) Silence(id robotmesh.HardwareID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.beacons = slices.DeleteFunc(a.beacons, func(x Beacon) bool { return x.HardwareID == id })
}

// Beacons returns every beacon in broadcast order.
func (a *Air) Beacons() []Beacon {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.beacons)
}

// hear returns what a scan on channel for ssid picks up, in broadcast order.
func (a *Air) hear(channel uint8, ssid string) []robotmesh.PeerRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []robotmesh.PeerRecord
	for _, b := range a.beacons {
		if b.Channel == channel && b.SSID == ssid {
			out = append(out, robotmesh.PeerRecord{HardwareID: b.HardwareID, SignalStrength: b.SignalStrength})
		}
	}
	return out
}

// accepts reports whether id is on the air for channel/ssid and takes links.
func (a *Air) accepts(id robotmesh.HardwareID, channel uint8, ssid string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, b := range a.beacons {
		if b.HardwareID == id {
			return b.Channel == channel && b.SSID == ssid && !b.Refuse
		}
	}
	return false
}
