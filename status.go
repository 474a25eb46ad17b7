package robotmesh

import "time"

// Status is a read-only snapshot of a mesh controller, handed to supervising
// tasks for diagnostics.
type Status struct {
	State     string
	Started   bool
	Connected bool

	// Peers is the ranked cache from the most recent completed scan,
	// strongest first.
	Peers []PeerRecord

	Scans           uint64
	ConnectAttempts uint64
	ConnectFailures uint64
	Links           uint64 // connect attempts confirmed by the radio

	// LastAcquisition is when a scan last produced at least one peer.
	// Zero if none has.
	LastAcquisition time.Time
}

// HasPeers reports whether the last scan found anyone.
func (s Status) HasPeers() bool {
	return len(s.Peers) > 0
}
