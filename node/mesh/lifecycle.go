package mesh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"robotmesh"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attempt is the outcome of one connect attempt against a ranked peer.
// Failures are recorded here, never escalated.
type Attempt struct {
	Peer robotmesh.PeerRecord
	// Linked is true when the radio confirmed the link before the connect
	// timeout.
	Linked bool
	// Err is the configure or connect failure, if any.
	Err error
	// DisconnectErr is the failure of the mandatory disconnect, if any.
	DisconnectErr error
	Duration      time.Duration
}

// CycleReport summarises one scan and the connect attempts that followed.
type CycleReport struct {
	Peers    []robotmesh.PeerRecord
	Attempts []Attempt
}

// Linked returns how many attempts in the cycle confirmed a link.
func (r CycleReport) Linked() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Linked {
			n++
		}
	}
	return n
}

// Start brings the radio up in the order the hardware requires:
// configure (no target) → set protocol → start. Any failure moves the
// controller to StateFailed, which is terminal; no retry is attempted.
func (c *Controller) Start(ctx context.Context) error {
	switch s := c.State(); s {
	case StateIdle:
	case StateFailed:
		return ErrFailed
	default:
		return fmt.Errorf("start: %w: %s", ErrInvalidState, s)
	}

	ctx, span := c.tracer.Start(ctx, "mesh.start", trace.WithAttributes(
		attribute.Int("mesh.channel", int(c.cfg.Channel())),
		attribute.String("mesh.ssid", c.cfg.SSID()),
		attribute.String("mesh.protocol", c.protocol.String()),
	))
	defer span.End()

	if err := c.radio.Configure(ctx, c.cfg.WithoutTarget().ModeConfig()); err != nil {
		return c.fail(span, radioErr("configure", err))
	}
	if err := c.radio.SetProtocol(ctx, c.protocol); err != nil {
		return c.fail(span, radioErr("set protocol", err))
	}
	if err := c.radio.Start(ctx); err != nil {
		return c.fail(span, radioErr("start", err))
	}

	c.started.Store(c.radio.IsStarted())
	c.setState(StateStarted)
	slog.Info("Mesh radio started.", "channel", c.cfg.Channel(), "ssid", c.cfg.SSID(),
		"protocol", c.protocol, "started", c.IsStarted())
	return nil
}

func (c *Controller) fail(span trace.Span, err error) error {
	c.setState(StateFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Error("Mesh radio failed to start.", "err", err)
	return err
}

// Scan listens for peers and ranks what it hears into a fresh cache, which
// replaces the previous one. A scan that hears nobody returns an empty
// cache. A scan failure is not fatal: the controller stays started and the
// stale cache is dropped.
func (c *Controller) Scan(ctx context.Context) (*RankedCache, error) {
	if err := c.requireStarted("scan"); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "mesh.scan")
	defer span.End()

	c.setState(StateScanning)
	start := c.clock.Now()
	records, err := c.radio.Scan(ctx, c.cfg.ScanParams())
	elapsed := c.clock.Now().Sub(start)
	c.setState(StateStarted)
	c.scans.Add(1)

	cache := NewRankedCache(c.capacity)
	if err != nil {
		err = radioErr("scan", err)
		c.cache = cache
		c.publishScan(cache)
		c.observeScan(elapsed, 0, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, rec := range records {
		cache.Insert(rec)
	}
	c.cache = cache
	c.publishScan(cache)
	if cache.Len() > 0 {
		c.lastAcquisition.Store(c.clock.Now().UnixNano())
	}
	c.observeScan(elapsed, cache.Len(), nil)

	span.SetAttributes(
		attribute.Int("mesh.heard", len(records)),
		attribute.Int("mesh.ranked", cache.Len()),
	)
	slog.Debug("scan complete", "heard", len(records), "ranked", cache.Len(), "took", elapsed)
	return cache, nil
}

// Connect tries one peer: configure with the peer as target, connect,
// confirm the link within the connect timeout, then disconnect. The
// disconnect is issued whatever happened before it, and the controller is
// back in StateStarted on return.
func (c *Controller) Connect(ctx context.Context, peer robotmesh.PeerRecord) Attempt {
	if err := c.requireStarted("connect"); err != nil {
		return Attempt{Peer: peer, Err: err}
	}

	ctx, span := c.tracer.Start(ctx, "mesh.connect", trace.WithAttributes(
		attribute.String("mesh.peer", peer.HardwareID.String()),
		attribute.Int("mesh.rssi", int(peer.SignalStrength)),
	))
	defer span.End()

	c.setState(StateConnecting)
	c.connectAttempts.Add(1)
	start := c.clock.Now()
	a := Attempt{Peer: peer}

	if err := c.radio.Configure(ctx, c.cfg.WithTarget(peer.HardwareID).ModeConfig()); err != nil {
		a.Err = radioErr("configure", err)
	} else if err := c.radio.Connect(ctx); err != nil {
		a.Err = radioErr("connect", err)
	} else if a.Linked = c.awaitLink(ctx); a.Linked {
		c.connected.Store(true)
		c.links.Add(1)
		c.setState(StateConnected)
		slog.Debug("peer linked", "peer", peer.HardwareID, "rssi", peer.SignalStrength)
	}

	// Disconnect even if ctx is done: the next scan depends on it.
	if err := c.radio.Disconnect(context.WithoutCancel(ctx)); err != nil {
		a.DisconnectErr = radioErr("disconnect", err)
		slog.Warn("disconnect failed", "peer", peer.HardwareID, "err", a.DisconnectErr)
	}
	c.connected.Store(c.radio.IsConnected())
	c.setState(StateDisconnected)
	c.setState(StateStarted)

	a.Duration = c.clock.Now().Sub(start)
	if a.Err != nil {
		c.connectFailures.Add(1)
		span.RecordError(a.Err)
		span.SetStatus(codes.Error, a.Err.Error())
		slog.Debug("connect failed", "peer", peer.HardwareID, "err", a.Err)
	}
	span.SetAttributes(attribute.Bool("mesh.linked", a.Linked))
	if c.recorder != nil {
		c.recorder.ObserveConnect(a.Duration, a.Linked, a.Err)
	}
	return a
}

// ConnectAll tries every cached peer in rank order. It stops early only when
// ctx is done or the controller can no longer connect.
func (c *Controller) ConnectAll(ctx context.Context, cache *RankedCache) []Attempt {
	attempts := make([]Attempt, 0, cache.Len())
	for _, peer := range cache.All() {
		if ctx.Err() != nil {
			break
		}
		a := c.Connect(ctx, peer)
		attempts = append(attempts, a)
		if errors.Is(a.Err, ErrFailed) || errors.Is(a.Err, ErrInvalidState) {
			break
		}
	}
	return attempts
}

// Cycle runs one scan and walks the resulting ranking. A scan that hears
// nobody makes no connect attempts.
func (c *Controller) Cycle(ctx context.Context) (CycleReport, error) {
	cache, err := c.Scan(ctx)
	if err != nil {
		return CycleReport{}, err
	}
	report := CycleReport{Peers: cache.Peers()}
	if cache.Len() == 0 {
		return report, nil
	}
	report.Attempts = c.ConnectAll(ctx, cache)
	return report, nil
}

// Disconnect drops any link left up. Used on shutdown; it issues the radio
// call only when the controller is started.
func (c *Controller) Disconnect(ctx context.Context) error {
	if c.State() != StateStarted {
		return nil
	}
	if err := c.radio.Disconnect(ctx); err != nil {
		return radioErr("disconnect", err)
	}
	c.connected.Store(c.radio.IsConnected())
	return nil
}

// awaitLink polls IsConnected until it reports a link, the connect timeout
// passes, or ctx is done.
func (c *Controller) awaitLink(ctx context.Context) bool {
	if c.radio.IsConnected() {
		return true
	}
	if c.connectTimeout <= 0 {
		return false
	}

	timeout := time.NewTimer(c.connectTimeout)
	defer timeout.Stop()
	tick := time.NewTicker(c.pollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timeout.C:
			return c.radio.IsConnected()
		case <-tick.C:
			if c.radio.IsConnected() {
				return true
			}
		}
	}
}

func (c *Controller) requireStarted(op string) error {
	switch s := c.State(); s {
	case StateStarted:
		return nil
	case StateFailed:
		return ErrFailed
	default:
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidState, s)
	}
}

func (c *Controller) observeScan(d time.Duration, peers int, err error) {
	if c.recorder != nil {
		c.recorder.ObserveScan(d, peers, err)
	}
}
