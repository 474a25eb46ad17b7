package main

import (
	"fmt"

	"robotmesh/config"
	"robotmesh/internal/ui"

	"github.com/spf13/cobra"
)

func scanCmd(flags *rootFlags) *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start the radio, scan once and print the ranked peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			radio, err := newRadio(cfg)
			if err != nil {
				return err
			}
			ctrl, err := newController(cfg, radio)
			if err != nil {
				return err
			}
			if err := ctrl.Start(ctx); err != nil {
				return err
			}

			cache, err := ctrl.Scan(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cache.Len() == 0 {
				fmt.Fprintln(out, ui.WarnMsg("No peers on channel %d (%s).", cfg.Mesh.Channel, cfg.Mesh.SSID))
				return nil
			}
			fmt.Fprintln(out, ui.PeerTable(cache.Peers()))

			if !connect {
				return nil
			}
			rows := make([][]string, 0, cache.Len())
			for _, a := range ctrl.ConnectAll(ctx, cache) {
				result := ui.Bool(a.Linked)
				if a.Err != nil {
					result = a.Err.Error()
				}
				rows = append(rows, []string{a.Peer.HardwareID.String(), result, a.Duration.String()})
			}
			fmt.Fprintln(out, ui.Table([]string{"PEER", "LINKED", "TOOK"}, rows))
			fmt.Fprintln(out, ui.SuccessMsg("%d of %d peers linked.", ctrl.Status().Links, cache.Len()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&connect, "connect", false, "Also try each ranked peer in order")
	return cmd
}
