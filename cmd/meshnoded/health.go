package main

import (
	"context"
	"fmt"
	"time"

	"robotmesh/daemon"
	"robotmesh/internal/ui"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func healthCmd() *cobra.Command {
	var (
		socketPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running node's health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial %s: %w", socketPath, err)
			}
			defer conn.Close()

			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: daemon.HealthService})
			if err != nil {
				return fmt.Errorf("check health: %w", err)
			}
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("node is %s", resp.GetStatus())
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessMsg("Node is serving."))
			return nil
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", defaultSocketPath(), "Unix socket path of the running node")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "How long to wait for an answer")
	return cmd
}
