package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"robotmesh"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeNode struct {
	started chan struct{}
	runErr  error
	failed  bool
}

func newFakeNode() *fakeNode {
	return &fakeNode{started: make(chan struct{})}
}

func (f *fakeNode) Run(ctx context.Context) error {
	if f.runErr != nil {
		return f.runErr
	}
	close(f.started)
	<-ctx.Done()
	return nil
}

func (f *fakeNode) Started() <-chan struct{} { return f.started }
func (f *fakeNode) Failed() bool             { return f.failed }
func (f *fakeNode) Status() robotmesh.Status {
	return robotmesh.Status{State: "started", Started: true}
}

func healthClient(t *testing.T, socket string) healthpb.HealthClient {
	t.Helper()
	conn, err := grpc.NewClient("unix://"+socket, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func waitServing(t *testing.T, client healthpb.HealthClient, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
		cancel()
		if err == nil && resp.GetStatus() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("health = %v (err %v), want %v", resp.GetStatus(), err, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRun_HealthServingOnceStarted(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "meshnoded.sock")
	n := newFakeNode()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, n, Options{SocketPath: socket}) }()

	waitServing(t, healthClient(t, socket), healthpb.HealthCheckResponse_SERVING)
	cancel()

	if err := <-errc; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRun_NotifiesSystemdOnceStarted(t *testing.T) {
	dir := t.TempDir()
	notify, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: filepath.Join(dir, "notify.sock"), Net: "unixgram"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = notify.Close() })
	t.Setenv("NOTIFY_SOCKET", notify.LocalAddr().String())

	n := newFakeNode()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, n, Options{SocketPath: filepath.Join(dir, "meshnoded.sock")}) }()

	_ = notify.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 64)
	nr, _, err := notify.ReadFromUnix(buf)
	if err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if got := string(buf[:nr]); got != "READY=1" {
		t.Errorf("notification = %q, want READY=1", got)
	}
	select {
	case <-n.Started():
	default:
		t.Error("READY=1 sent before the node started")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestListenAndServe_CancelledBeforeServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewServer(newFakeNode())
	if err := s.ListenAndServe(ctx, filepath.Join(t.TempDir(), "meshnoded.sock")); err != nil {
		t.Fatalf("ListenAndServe() error = %v, want nil on shutdown", err)
	}
}

func TestRun_NodeFailureIsReturned(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "meshnoded.sock")
	startErr := errors.New("radio start failed")
	n := &fakeNode{started: make(chan struct{}), runErr: startErr, failed: true}

	err := Run(context.Background(), n, Options{SocketPath: socket})
	if !errors.Is(err, startErr) {
		t.Fatalf("Run() error = %v, want start error", err)
	}
}

func TestServer_NotServingBeforeStart(t *testing.T) {
	s := NewServer(newFakeNode())
	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthService})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
	s.markServing()
	s.markFailed()
	resp, err = s.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status after failure = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestServeMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "mesh_scans_total 1\n")
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- serveMetrics(ctx, ln, h) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "mesh_scans_total 1") {
		t.Errorf("body = %q", body)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("serveMetrics() error = %v", err)
	}
}
