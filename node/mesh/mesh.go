// Package mesh discovers and links to nearby radios sharing a channel. A
// Controller owns the radio: it starts it, scans for peers, ranks them by
// signal strength, and walks the ranking with configure → connect →
// disconnect.
package mesh

import (
	"sync/atomic"
	"time"

	"robotmesh"
	"robotmesh/internal/check"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultConnectTimeout bounds how long Connect polls the radio for an
	// established link before giving up on the candidate.
	DefaultConnectTimeout = 100 * time.Millisecond
	// DefaultPollInterval is the IsConnected polling period.
	DefaultPollInterval = 10 * time.Millisecond
)

const tracerName = "robotmesh/node/mesh"

// Controller is the mesh node state machine. It is the single owner of its
// Radio: every method that touches the radio must be called from one
// goroutine. State, IsStarted, IsConnected, LastScan and Status are safe to
// call from anywhere.
type Controller struct {
	radio Radio
	cfg   Config

	capacity       int
	protocol       Protocol
	connectTimeout time.Duration
	pollInterval   time.Duration
	tracer         trace.Tracer
	recorder       Recorder
	clock          Clock

	// cache is only touched by the owning goroutine.
	cache *RankedCache

	state     atomic.Uint32
	started   atomic.Bool
	connected atomic.Bool
	lastScan  atomic.Pointer[[]robotmesh.PeerRecord]

	scans           atomic.Uint64
	connectAttempts atomic.Uint64
	connectFailures atomic.Uint64
	links           atomic.Uint64
	lastAcquisition atomic.Int64 // unix nanos, 0 = never
}

// Option configures a Controller.
type Option func(*Controller)

// WithCacheCapacity sets how many ranked peers a scan keeps.
func WithCacheCapacity(n int) Option {
	return func(c *Controller) { c.capacity = n }
}

// WithProtocol sets the PHY protocols applied during Start.
func WithProtocol(p Protocol) Option {
	return func(c *Controller) { c.protocol = p }
}

// WithConnectTimeout bounds link confirmation per candidate. A value <= 0
// skips confirmation: connect is best-effort and the candidate is
// disconnected straight away.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Controller) { c.connectTimeout = d }
}

// WithPollInterval sets how often IsConnected is polled while confirming.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

// WithTracer injects a tracer. Defaults to the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

// WithRecorder injects a measurement sink.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock injects a time source.
func WithClock(clk Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// New creates an idle controller. The controller takes ownership of radio.
func New(radio Radio, cfg Config, opts ...Option) *Controller {
	check.Assert(radio != nil, "mesh.New: radio must not be nil")

	c := &Controller{
		radio:          radio,
		cfg:            cfg,
		capacity:       DefaultCacheCapacity,
		protocol:       DefaultProtocol,
		connectTimeout: DefaultConnectTimeout,
		pollInterval:   DefaultPollInterval,
		clock:          SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	c.cache = NewRankedCache(c.capacity)
	c.capacity = c.cache.Cap()
	return c
}

// Config returns the mesh configuration.
func (c *Controller) Config() Config { return c.cfg }

// State returns the current state.
func (c *Controller) State() State { return State(c.state.Load()) }

// IsStarted reports whether the radio has been started.
func (c *Controller) IsStarted() bool { return c.started.Load() }

// IsConnected reports whether the radio held a link at its last check.
func (c *Controller) IsConnected() bool { return c.connected.Load() }

// LastScan returns the ranked peers from the most recent scan, strongest
// first. Nil before the first scan.
func (c *Controller) LastScan() []robotmesh.PeerRecord {
	p := c.lastScan.Load()
	if p == nil {
		return nil
	}
	out := make([]robotmesh.PeerRecord, len(*p))
	copy(out, *p)
	return out
}

// Status returns a diagnostic snapshot.
func (c *Controller) Status() robotmesh.Status {
	st := robotmesh.Status{
		State:           c.State().String(),
		Started:         c.IsStarted(),
		Connected:       c.IsConnected(),
		Peers:           c.LastScan(),
		Scans:           c.scans.Load(),
		ConnectAttempts: c.connectAttempts.Load(),
		ConnectFailures: c.connectFailures.Load(),
		Links:           c.links.Load(),
	}
	if ns := c.lastAcquisition.Load(); ns != 0 {
		st.LastAcquisition = time.Unix(0, ns)
	}
	return st
}

func (c *Controller) setState(to State) {
	from := c.State()
	check.Assertf(from.canTransition(to), "mesh transition: %s -> %s", from, to)
	c.state.Store(uint32(to))
	if c.recorder != nil {
		c.recorder.ObserveState(to.String())
	}
}

func (c *Controller) publishScan(cache *RankedCache) {
	peers := cache.Peers()
	c.lastScan.Store(&peers)
}
