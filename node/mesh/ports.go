package mesh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"robotmesh"
)

// Radio is the hardware surface the controller drives. Implementations are
// owned by exactly one Controller; calls are never concurrent.
//
// Ordering constraints the hardware does not enforce itself:
//   - Configure must precede SetProtocol.
//   - Configure must precede every Connect; a connect against a stale
//     configuration is silently ignored.
//   - Disconnect must follow every Connect before the next Scan.
type Radio interface {
	Configure(ctx context.Context, mc ModeConfig) error
	SetProtocol(ctx context.Context, p Protocol) error
	Start(ctx context.Context) error
	IsStarted() bool
	// Scan listens for the passive window and returns what it heard.
	Scan(ctx context.Context, params ScanParams) ([]robotmesh.PeerRecord, error)
	// Connect begins association using the last applied configuration.
	// A nil error does not mean the link is up; poll IsConnected.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
}

// Recorder receives controller measurements. A nil Recorder drops them.
type Recorder interface {
	ObserveState(state string)
	ObserveScan(d time.Duration, peers int, err error)
	ObserveConnect(d time.Duration, linked bool, err error)
}

// Clock is the time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Protocol is a bitmask of 802.11 PHY protocols.
type Protocol uint8

const (
	Protocol80211B Protocol = 1 << iota
	Protocol80211G
	Protocol80211N
	// ProtocolLR is the vendor long-range mode: lower rate, longer reach.
	ProtocolLR
)

// DefaultProtocol is long-range only.
const DefaultProtocol = ProtocolLR

var protocolNames = []struct {
	p    Protocol
	name string
}{
	{Protocol80211B, "b"},
	{Protocol80211G, "g"},
	{Protocol80211N, "n"},
	{ProtocolLR, "lr"},
}

func (p Protocol) String() string {
	if p == 0 {
		return "none"
	}
	var parts []string
	for _, pn := range protocolNames {
		if p&pn.p != 0 {
			parts = append(parts, pn.name)
		}
	}
	return strings.Join(parts, "+")
}

// ParseProtocol parses a "+" or "," separated protocol list such as "b+g+n"
// or "lr".
func ParseProtocol(s string) (Protocol, error) {
	var p Protocol
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	for _, f := range fields {
		found := false
		for _, pn := range protocolNames {
			if f == pn.name {
				p |= pn.p
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown radio protocol %q", f)
		}
	}
	if p == 0 {
		return 0, fmt.Errorf("empty radio protocol %q", s)
	}
	return p, nil
}
