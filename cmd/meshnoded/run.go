package main

import (
	"os"
	"os/signal"
	"syscall"

	"robotmesh/config"
	"robotmesh/daemon"
	"robotmesh/internal/observability"
	"robotmesh/node"
	"robotmesh/node/acquisition"
	"robotmesh/node/mesh"

	"github.com/spf13/cobra"
)

func runCmd(flags *rootFlags) *cobra.Command {
	var (
		socketPath  string
		metricsAddr string
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the mesh node until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("socket") && cfg.Daemon.Socket != "" {
				socketPath = cfg.Daemon.Socket
			}
			if !cmd.Flags().Changed("metrics-addr") && cfg.Daemon.MetricsAddr != "" {
				metricsAddr = cfg.Daemon.MetricsAddr
			}

			shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
				Enabled:     trace,
				ServiceName: "meshnoded",
				Writer:      cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer observability.ShutdownWithTimeout(ctx, shutdown)

			collector, err := observability.NewMeshCollector(nil)
			if err != nil {
				return err
			}

			radio, err := newRadio(cfg)
			if err != nil {
				return err
			}
			ctrl, err := newController(cfg, radio, mesh.WithRecorder(collector))
			if err != nil {
				return err
			}
			n := node.New(ctrl,
				acquisition.WithIdleYield(cfg.Node.IdleYield),
				acquisition.WithRecorder(collector),
			)

			return daemon.Run(ctx, n, daemon.Options{
				SocketPath:  socketPath,
				MetricsAddr: metricsAddr,
				Metrics:     collector.Handler(),
			})
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", defaultSocketPath(), "Unix socket path for the health service")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9464", "Address for the Prometheus /metrics endpoint (empty to disable)")
	cmd.Flags().BoolVar(&trace, "trace", false, "Write OpenTelemetry spans to stderr")
	return cmd
}
