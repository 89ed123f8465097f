package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/aegis/pkg/cli"
	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Aegis - edge gateway with auth, rate limiting and circuit breaking",
	Long: `Aegis terminates client HTTP traffic for a multi-service backend.

For every request it:
  - enforces a per-client fixed-window rate limit shared through Redis
  - matches the path to a downstream service
  - rejects early when that service's circuit breaker is open
  - validates the caller's JWT and role
  - proxies to the service and feeds the outcome back to the breaker`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the
// error.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "aegis.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig reads the config file with environment overrides and applies
// the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError(cfgFile, err)
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, cli.NewConfigError("--log-level", err.Error())
		}
		cfg.Telemetry.Logging.Level = logLevel
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	lc.Writer = w
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Logger)
	return logger, nil
}
