package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"robotmesh"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name the node's health is reported under.
// The empty service name reports the same status.
const HealthService = "robotmesh.MeshNode"

// Node is what the server needs from the mesh node.
type Node interface {
	Started() <-chan struct{}
	Failed() bool
	Status() robotmesh.Status
}

// RunnableNode is a Node the daemon also drives.
type RunnableNode interface {
	Node
	Run(ctx context.Context) error
}

type Server struct {
	node   Node
	health *health.Server
}

// NewServer creates a server reporting NOT_SERVING until the node starts.
func NewServer(n Node) *Server {
	s := &Server{node: n, health: health.NewServer()}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(HealthService, st)
}

func (s *Server) markServing() {
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	st := s.node.Status()
	slog.Info("Mesh node serving.", "state", st.State)
}

func (s *Server) markFailed() {
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	slog.Error("Mesh node failed; health set to NOT_SERVING.")
}

// ListenAndServe starts the gRPC server on a unix socket and blocks until
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, socketPath string) error {
	// Remove stale socket from a previous run (may not exist).
	_ = os.Remove(socketPath)
	defer func() { _ = os.Remove(socketPath) }()

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", socketPath, err)
	}

	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(srv, s.health)

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
