package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"robotmesh"
	"robotmesh/node/acquisition"
	"robotmesh/node/mesh"
	"robotmesh/radio/sim"
)

var (
	peerA = robotmesh.HardwareID{0x02, 0, 0, 0, 0, 0x0a}
	peerB = robotmesh.HardwareID{0x02, 0, 0, 0, 0, 0x0b}
	peerC = robotmesh.HardwareID{0x02, 0, 0, 0, 0, 0x0c}
)

func helloAir() *sim.Air {
	return sim.NewAir(
		sim.Beacon{HardwareID: peerA, Channel: 9, SSID: "mesh-hello", SignalStrength: -40},
		sim.Beacon{HardwareID: peerB, Channel: 9, SSID: "mesh-hello", SignalStrength: -70},
		sim.Beacon{HardwareID: peerC, Channel: 9, SSID: "mesh-hello", SignalStrength: -55},
	)
}

func newTestNode(t *testing.T, radio *sim.Radio) *Node {
	t.Helper()
	cfg, err := mesh.NewConfig(9, "mesh-hello", "very-secret-pass")
	if err != nil {
		t.Fatal(err)
	}
	ctrl := mesh.New(radio, cfg, mesh.WithConnectTimeout(20*time.Millisecond), mesh.WithPollInterval(time.Millisecond))
	return New(ctrl, acquisition.WithIdleYield(time.Millisecond))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRun_CyclesUntilCancelled(t *testing.T) {
	radio := sim.New(helloAir(), sim.WithLinkPolls(1))
	n := newTestNode(t, radio)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- n.Run(ctx) }()

	select {
	case <-n.Started():
	case <-time.After(5 * time.Second):
		t.Fatal("node never started")
	}
	waitFor(t, func() bool { return n.Status().Links >= 6 })
	cancel()

	if err := <-errc; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	st := n.Status()
	if !st.Started || st.State != mesh.StateStarted.String() {
		t.Errorf("status = %+v, want started", st)
	}
	if len(st.Peers) != 3 || st.Peers[0].HardwareID != peerA || st.Peers[1].HardwareID != peerC || st.Peers[2].HardwareID != peerB {
		t.Errorf("peers = %v, want A, C, B", st.Peers)
	}
	if st.LastAcquisition.IsZero() {
		t.Error("LastAcquisition not set")
	}
	if n.Failed() {
		t.Error("Failed() = true")
	}

	ops := radio.Ops()
	if ops[len(ops)-1] != sim.OpDisconnect {
		t.Errorf("last radio op = %s, want Disconnect on shutdown", ops[len(ops)-1])
	}
}

func TestRun_StartFailureIsReturned(t *testing.T) {
	startErr := errors.New("phy init failed")
	radio := sim.New(helloAir())
	radio.FailAlways(sim.OpStart, startErr)
	n := newTestNode(t, radio)

	err := n.Run(context.Background())
	if !errors.Is(err, startErr) {
		t.Fatalf("Run() error = %v, want start error", err)
	}
	if !errors.Is(err, mesh.ErrRadio) {
		t.Fatalf("Run() error = %v, want ErrRadio", err)
	}
	if !n.Failed() {
		t.Error("Failed() = false after start failure")
	}
	select {
	case <-n.Started():
		t.Error("Started() closed after start failure")
	default:
	}

	want := []sim.Op{sim.OpConfigure, sim.OpSetProtocol, sim.OpStart}
	got := radio.Ops()
	if len(got) != len(want) {
		t.Fatalf("radio ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("radio ops = %v, want %v", got, want)
		}
	}
}

func TestRun_ScanFailuresKeepNodeAlive(t *testing.T) {
	radio := sim.New(helloAir())
	radio.FailAlways(sim.OpScan, errors.New("rx busy"))
	n := newTestNode(t, radio)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- n.Run(ctx) }()

	waitFor(t, func() bool { return n.Status().Scans >= 2 })
	if n.Status().HasPeers() {
		t.Error("peers reported while scans fail")
	}
	radio.Clear(sim.OpScan)
	waitFor(t, func() bool { return n.Status().HasPeers() })
	cancel()

	if err := <-errc; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRun_UnreachablePeersCountAsFailedLinks(t *testing.T) {
	air := sim.NewAir(sim.Beacon{HardwareID: peerA, Channel: 9, SSID: "mesh-hello", SignalStrength: -40, Refuse: true})
	radio := sim.New(air)
	n := newTestNode(t, radio)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- n.Run(ctx) }()

	waitFor(t, func() bool { return n.Status().ConnectAttempts >= 2 })
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if st := n.Status(); st.Links != 0 {
		t.Errorf("links = %d, want 0", st.Links)
	}
}
