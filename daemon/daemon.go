// Package daemon supervises a mesh node: it runs the node alongside a gRPC
// health endpoint and a Prometheus metrics endpoint.
package daemon

import (
	"context"
	"log/slog"
	"net/http"

	systemd "github.com/coreos/go-systemd/daemon"
	"golang.org/x/sync/errgroup"
)

// Options configures the supervising surfaces.
type Options struct {
	// SocketPath is the unix socket for the gRPC health service.
	SocketPath string
	// MetricsAddr is the TCP address for /metrics. Empty disables it.
	MetricsAddr string
	// Metrics serves /metrics. Required when MetricsAddr is set.
	Metrics http.Handler
}

// Run starts the node, the health server, the metrics endpoint and systemd
// notification, then blocks until ctx is cancelled or one of them fails.
func Run(ctx context.Context, n RunnableNode, opts Options) error {
	srv := NewServer(n)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting mesh node.")

		// Report readiness to systemd once the node is started.
		go func() {
			select {
			case <-n.Started():
				srv.markServing()
				_, err := systemd.SdNotify(false, systemd.SdNotifyReady)
				if err != nil {
					slog.Error("Failed to notify systemd that the daemon is ready.", "err", err)
				}
			case <-ctx.Done():
			}
		}()

		err := n.Run(ctx)
		if n.Failed() {
			srv.markFailed()
		}
		return err
	})
	g.Go(func() error { return srv.ListenAndServe(ctx, opts.SocketPath) })
	if opts.MetricsAddr != "" && opts.Metrics != nil {
		g.Go(func() error { return ServeMetrics(ctx, opts.MetricsAddr, opts.Metrics) })
	}
	return g.Wait()
}
