package robotmesh

import (
	"fmt"
	"net"
)

// HardwareID is the 6-byte physical address (BSSID) of a radio peer.
type HardwareID [6]byte

// ParseHardwareID parses a colon or dash separated 6-byte address,
// e.g. "aa:bb:cc:dd:ee:ff".
func ParseHardwareID(s string) (HardwareID, error) {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return HardwareID{}, fmt.Errorf("parse hardware id: %w", err)
	}
	if len(mac) != len(HardwareID{}) {
		return HardwareID{}, fmt.Errorf("parse hardware id %q: want 6 bytes, got %d", s, len(mac))
	}
	var id HardwareID
	copy(id[:], mac)
	return id, nil
}

func (id HardwareID) String() string {
	return net.HardwareAddr(id[:]).String()
}

// PeerRecord is a radio peer observed during a scan. Records are values:
// replace them, don't mutate them.
type PeerRecord struct {
	HardwareID     HardwareID
	SignalStrength int8 // RSSI in dBm, larger is stronger
}

func (r PeerRecord) String() string {
	return fmt.Sprintf("%s(%d dBm)", r.HardwareID, r.SignalStrength)
}
