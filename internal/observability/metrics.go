// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for a mesh node.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// MeshCollector bundles Prometheus metrics for a mesh node. It satisfies
// the controller and acquisition loop recorder interfaces; a nil collector
// drops every observation.
type MeshCollector struct {
	gatherer prometheus.Gatherer

	State           *prometheus.GaugeVec
	Scans           *prometheus.CounterVec
	ScanDurations   prometheus.Histogram
	ScanPeers       prometheus.Gauge
	Connects        *prometheus.CounterVec
	ConnectDuration prometheus.Histogram
	SinceLastPeer   prometheus.Gauge
	ScanRetries     prometheus.Counter

	mu        sync.Mutex
	lastState string
}

// NewMeshCollector registers mesh metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewMeshCollector(reg prometheus.Registerer) (*MeshCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	state, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mesh_state",
		Help: "1 for the controller's current state, 0 otherwise.",
	}, []string{"state"}), "mesh_state")
	if err != nil {
		return nil, err
	}
	scans, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_scans_total",
		Help: "Completed scans, labeled by result (ok, error).",
	}, []string{"result"}), "mesh_scans_total")
	if err != nil {
		return nil, err
	}
	scanDurations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mesh_scan_duration_seconds",
		Help:    "Scan latency in seconds.",
		Buckets: durationBuckets,
	}), "mesh_scan_duration_seconds")
	if err != nil {
		return nil, err
	}
	scanPeers, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mesh_scan_peers",
		Help: "Ranked peers kept from the most recent scan.",
	}), "mesh_scan_peers")
	if err != nil {
		return nil, err
	}
	connects, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_connect_attempts_total",
		Help: "Connect attempts, labeled by result (linked, unlinked, error).",
	}, []string{"result"}), "mesh_connect_attempts_total")
	if err != nil {
		return nil, err
	}
	connectDuration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mesh_connect_duration_seconds",
		Help:    "Configure-connect-disconnect latency per attempt in seconds.",
		Buckets: durationBuckets,
	}), "mesh_connect_duration_seconds")
	if err != nil {
		return nil, err
	}
	sinceLastPeer, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mesh_since_last_peer_seconds",
		Help: "Time between the two most recent scans that found peers.",
	}), "mesh_since_last_peer_seconds")
	if err != nil {
		return nil, err
	}
	retries, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mesh_scan_retries_total",
		Help: "Backoff pauses taken after failed scans.",
	}), "mesh_scan_retries_total")
	if err != nil {
		return nil, err
	}

	return &MeshCollector{
		gatherer:        gatherer,
		State:           state,
		Scans:           scans,
		ScanDurations:   scanDurations,
		ScanPeers:       scanPeers,
		Connects:        connects,
		ConnectDuration: connectDuration,
		SinceLastPeer:   sinceLastPeer,
		ScanRetries:     retries,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *MeshCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *MeshCollector) ObserveState(state string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastState != "" && c.lastState != state {
		c.State.WithLabelValues(c.lastState).Set(0)
	}
	c.State.WithLabelValues(state).Set(1)
	c.lastState = state
}

func (c *MeshCollector) ObserveScan(d time.Duration, peers int, err error) {
	if c == nil {
		return
	}
	c.ScanDurations.Observe(d.Seconds())
	if err != nil {
		c.Scans.WithLabelValues("error").Inc()
		c.ScanPeers.Set(0)
		return
	}
	c.Scans.WithLabelValues("ok").Inc()
	c.ScanPeers.Set(float64(peers))
}

func (c *MeshCollector) ObserveConnect(d time.Duration, linked bool, err error) {
	if c == nil {
		return
	}
	c.ConnectDuration.Observe(d.Seconds())
	switch {
	case err != nil:
		c.Connects.WithLabelValues("error").Inc()
	case linked:
		c.Connects.WithLabelValues("linked").Inc()
	default:
		c.Connects.WithLabelValues("unlinked").Inc()
	}
}

func (c *MeshCollector) ObserveAcquisition(since time.Duration) {
	if c == nil {
		return
	}
	c.SinceLastPeer.Set(since.Seconds())
}

func (c *MeshCollector) ObserveScanRetry(time.Duration) {
	if c == nil {
		return
	}
	c.ScanRetries.Inc()
}

// register adds col to reg, returning the already registered collector of
// the same type if there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
