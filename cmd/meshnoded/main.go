package main

import (
	"fmt"
	"os"
	"runtime"

	"robotmesh/internal/buildinfo"
	"robotmesh/internal/logging"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	debug      bool
	logFormat  string
}

func main() {
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "meshnoded",
		Short:         "Robot mesh discovery and connection daemon",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if flags.debug {
				level = logging.LevelDebug
			}
			return logging.ConfigureFormat(level, flags.logFormat)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/robotmesh/config.yaml)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", logging.FormatText, "Log format (text or json)")

	run := runCmd(&flags)
	cmd.RunE = run.RunE
	cmd.Flags().AddFlagSet(run.Flags())

	cmd.AddCommand(run)
	cmd.AddCommand(scanCmd(&flags))
	cmd.AddCommand(healthCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "meshnoded %s (%s/%s)\n", buildinfo.Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

func defaultSocketPath() string {
	if runtime.GOOS == "darwin" {
		return "/tmp/meshnoded.sock"
	}
	return "/var/run/meshnoded.sock"
}
