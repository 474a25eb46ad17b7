package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"robotmesh/node/acquisition"
	"robotmesh/node/mesh"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

var (
	_ mesh.Recorder        = (*MeshCollector)(nil)
	_ acquisition.Recorder = (*MeshCollector)(nil)
)

func newCollector(t *testing.T) (*MeshCollector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewMeshCollector(reg)
	if err != nil {
		t.Fatalf("NewMeshCollector: %v", err)
	}
	return c, reg
}

func TestObserveState_OnlyCurrentStateIsSet(t *testing.T) {
	c, _ := newCollector(t)
	c.ObserveState("started")
	c.ObserveState("scanning")
	c.ObserveState("started")

	if got := testutil.ToFloat64(c.State.WithLabelValues("started")); got != 1 {
		t.Errorf("mesh_state{started} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.State.WithLabelValues("scanning")); got != 0 {
		t.Errorf("mesh_state{scanning} = %v, want 0", got)
	}
}

func TestObserveScan(t *testing.T) {
	c, reg := newCollector(t)
	c.ObserveScan(20*time.Millisecond, 3, nil)
	c.ObserveScan(5*time.Millisecond, 0, errors.New("busy"))

	if got := testutil.ToFloat64(c.Scans.WithLabelValues("ok")); got != 1 {
		t.Errorf("mesh_scans_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Scans.WithLabelValues("error")); got != 1 {
		t.Errorf("mesh_scans_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ScanPeers); got != 0 {
		t.Errorf("mesh_scan_peers = %v, want 0 after failed scan", got)
	}
	if got := histogramSampleCount(t, reg, "mesh_scan_duration_seconds"); got != 2 {
		t.Errorf("mesh_scan_duration_seconds count = %d, want 2", got)
	}
}

func TestObserveConnect_Results(t *testing.T) {
	c, reg := newCollector(t)
	c.ObserveConnect(time.Millisecond, true, nil)
	c.ObserveConnect(time.Millisecond, false, nil)
	c.ObserveConnect(time.Millisecond, false, errors.New("assoc rejected"))
	c.ObserveConnect(time.Millisecond, true, nil)

	for result, want := range map[string]float64{"linked": 2, "unlinked": 1, "error": 1} {
		if got := testutil.ToFloat64(c.Connects.WithLabelValues(result)); got != want {
			t.Errorf("mesh_connect_attempts_total{%s} = %v, want %v", result, got, want)
		}
	}
	if got := histogramSampleCount(t, reg, "mesh_connect_duration_seconds"); got != 4 {
		t.Errorf("mesh_connect_duration_seconds count = %d, want 4", got)
	}
}

func TestObserveAcquisitionAndRetry(t *testing.T) {
	c, _ := newCollector(t)
	c.ObserveAcquisition(1500 * time.Millisecond)
	c.ObserveScanRetry(50 * time.Millisecond)
	c.ObserveScanRetry(100 * time.Millisecond)

	if got := testutil.ToFloat64(c.SinceLastPeer); got != 1.5 {
		t.Errorf("mesh_since_last_peer_seconds = %v, want 1.5", got)
	}
	if got := testutil.ToFloat64(c.ScanRetries); got != 2 {
		t.Errorf("mesh_scan_retries_total = %v, want 2", got)
	}
}

func TestNilCollectorDropsObservations(t *testing.T) {
	var c *MeshCollector
	c.ObserveState("started")
	c.ObserveScan(time.Millisecond, 1, nil)
	c.ObserveConnect(time.Millisecond, true, nil)
	c.ObserveAcquisition(time.Second)
	c.ObserveScanRetry(time.Second)
}

func TestNewMeshCollector_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMeshCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewMeshCollector(reg)
	if err != nil {
		t.Fatalf("second NewMeshCollector: %v", err)
	}
	second.ScanRetries.Inc()
	if got := testutil.ToFloat64(first.ScanRetries); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c, _ := newCollector(t)
	c.ObserveState("started")
	c.ObserveScan(time.Millisecond, 2, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`mesh_state{state="started"} 1`, "mesh_scan_peers 2", `mesh_scans_total{result="ok"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func histogramSampleCount(t *testing.T, reg prometheus.Gatherer, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name || mf.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		var total uint64
		for _, m := range mf.GetMetric() {
			total += m.GetHistogram().GetSampleCount()
		}
		return total
	}
	t.Fatalf("histogram %s not found", name)
	return 0
}
