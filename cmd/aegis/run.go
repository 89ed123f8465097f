package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/aegis/pkg/cli"
	"mercator-hq/aegis/pkg/server"
)

var runFlags struct {
	listenAddress string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Aegis gateway",
	Long: `Start the Aegis gateway with the specified configuration.

The gateway refuses to start when the configured Redis store does not answer.
SIGINT or SIGTERM trigger a graceful shutdown bounded by server.shutdown_timeout.

Examples:
  # Start with default config
  aegis run

  # Start with custom config
  aegis run --config /etc/aegis/aegis.yaml

  # Override listen address and log level
  aegis run --listen 0.0.0.0:9090 --log-level debug

  # Validate config without starting the gateway
  aegis run --dry-run`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
}

func runGateway(cmd *cobra.Command, args []string) error {
	// Load and validate configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	logger, err := setupLogging(cfg, nil)
	if err != nil {
		return err
	}

	// Cancel on SIGINT/SIGTERM
	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	slog.Info("starting aegis",
		"version", Version,
		"config", cfgFile,
		"listen_address", cfg.Server.ListenAddress,
		"log_level", logger.Level().String(),
	)

	srv, err := server.New(ctx, cfg, buildInfo(), server.WithLogger(logger.Logger))
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Blocks until shutdown completes
	if err := srv.Run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}
