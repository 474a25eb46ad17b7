package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"robotmesh"
	"robotmesh/node/mesh"
)

var (
	ErrNotConfigured      = errors.New("radio not configured")
	ErrNotStarted         = errors.New("radio not started")
	ErrAlreadyStarted     = errors.New("radio already started")
	ErrStaleConfig        = errors.New("connect without a fresh configuration")
	ErrNoTarget           = errors.New("station has no target")
	ErrScanWhileConnected = errors.New("scan with a connection outstanding")
)

// Op names a radio operation in the journal and for fault injection.
type Op string

const (
	OpConfigure   Op = "Configure"
	OpSetProtocol Op = "SetProtocol"
	OpStart       Op = "Start"
	OpScan        Op = "Scan"
	OpConnect     Op = "Connect"
	OpDisconnect  Op = "Disconnect"
)

// Call is one journal entry.
type Call struct {
	Op Op
	// Target is the station BSSID for Configure calls that carry one.
	Target    robotmesh.HardwareID
	HasTarget bool
	Err       error
}

// Radio implements mesh.Radio against an Air.
type Radio struct {
	air         *Air
	countryCode string
	linkPolls   int
	scanTime    bool

	mu          sync.Mutex
	mode        mesh.ModeConfig
	configured  bool
	fresh       bool
	protocol    mesh.Protocol
	started     bool
	outstanding bool
	connected   bool
	polls       int
	faults      faults
	journal     []Call
}

// Option configures a Radio.
type Option func(*Radio)

// WithCountryCode sets the regulatory domain the radio reports.
func WithCountryCode(cc string) Option {
	return func(r *Radio) { r.countryCode = cc }
}

// WithLinkPolls makes a link come up only after n IsConnected polls.
func WithLinkPolls(n int) Option {
	return func(r *Radio) { r.linkPolls = n }
}

// WithScanWindow makes Scan block for the requested passive window, as
// hardware does. Off by default so tests run fast.
func WithScanWindow() Option {
	return func(r *Radio) { r.scanTime = true }
}

// New creates a radio listening on air.
func New(air *Air, opts ...Option) *Radio {
	r := &Radio{air: air}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Journal returns every call made so far, in order.
func (r *Radio) Journal() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.journal)
}

// Ops returns the journal's operation names, in order.
func (r *Radio) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]Op, len(r.journal))
	for i, c := range r.journal {
		ops[i] = c.Op
	}
	return ops
}

// CountryCode returns the configured regulatory domain, empty if unset.
func (r *Radio) CountryCode() string { return r.countryCode }

// Protocol returns the protocol set applied by SetProtocol.
func (r *Radio) Protocol() mesh.Protocol {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.protocol
}

// Mode returns the last applied mode configuration.
func (r *Radio) Mode() mesh.ModeConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *Radio) record(c Call) error {
	if c.Err == nil {
		c.Err = r.faults.eval(c)
	}
	r.journal = append(r.journal, c)
	return c.Err
}

func (r *Radio) Configure(ctx context.Context, mc mesh.ModeConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Call{Op: OpConfigure, Target: mc.Station.BSSID, HasTarget: mc.Station.HasBSSID, Err: ctx.Err()}
	if err := r.record(c); err != nil {
		return err
	}
	r.mode = mc
	r.configured = true
	r.fresh = true
	return nil
}

func (r *Radio) SetProtocol(ctx context.Context, p mesh.Protocol) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Call{Op: OpSetProtocol, Err: ctx.Err()}
	if c.Err == nil && !r.configured {
		c.Err = fmt.Errorf("set protocol: %w", ErrNotConfigured)
	}
	if err := r.record(c); err != nil {
		return err
	}
	r.protocol = p
	return nil
}

func (r *Radio) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Call{Op: OpStart, Err: ctx.Err()}
	switch {
	case c.Err != nil:
	case !r.configured:
		c.Err = fmt.Errorf("start: %w", ErrNotConfigured)
	case r.started:
		c.Err = ErrAlreadyStarted
	}
	if err := r.record(c); err != nil {
		return err
	}
	r.started = true
	return nil
}

func (r *Radio) IsStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *Radio) Scan(ctx context.Context, params mesh.ScanParams) ([]robotmesh.PeerRecord, error) {
	r.mu.Lock()
	c := Call{Op: OpScan, Err: ctx.Err()}
	switch {
	case c.Err != nil:
	case !r.started:
		c.Err = fmt.Errorf("scan: %w", ErrNotStarted)
	case r.outstanding:
		c.Err = ErrScanWhileConnected
	}
	err := r.record(c)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if r.scanTime && params.Passive > 0 {
		t := time.NewTimer(params.Passive)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return r.air.hear(params.Channel, params.SSID), nil
}

func (r *Radio) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Call{Op: OpConnect, Err: ctx.Err()}
	switch {
	case c.Err != nil:
	case !r.started:
		c.Err = fmt.Errorf("connect: %w", ErrNotStarted)
	case !r.fresh:
		c.Err = ErrStaleConfig
	case !r.mode.Station.HasBSSID:
		c.Err = ErrNoTarget
	}
	if err := r.record(c); err != nil {
		return err
	}
	r.fresh = false
	r.outstanding = true
	r.polls = 0
	return nil
}

func (r *Radio) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Call{Op: OpDisconnect, Err: ctx.Err()}
	if c.Err == nil && !r.started {
		c.Err = fmt.Errorf("disconnect: %w", ErrNotStarted)
	}
	if err := r.record(c); err != nil {
		return err
	}
	r.fresh = false
	r.outstanding = false
	r.connected = false
	return nil
}

// IsConnected reports the link state. An outstanding connect to a reachable
// peer links once it has been polled more than the configured link polls.
func (r *Radio) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected || !r.outstanding {
		return r.connected
	}
	st := r.mode.Station
	if !r.air.accepts(st.BSSID, st.Channel, st.SSID) {
		return false
	}
	if r.polls < r.linkPolls {
		r.polls++
		return false
	}
	r.connected = true
	return true
}

var _ mesh.Radio = (*Radio)(nil)
