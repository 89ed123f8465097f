package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/aegis/pkg/routing"
	"mercator-hq/aegis/pkg/security/secrets"
)

var validateFlags struct {
	checkSecret bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file, apply defaults and environment overrides, and
report every validation problem at once.

With --check-secret the JWT secret is also resolved from its source and its
length checked.

Examples:
  aegis validate --config aegis.yaml
  aegis validate --check-secret`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.checkSecret, "check-secret", false, "also resolve and check the JWT secret")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := routing.NewTable(cfg.Routing, cfg.Breaker.Timeout)
	if err != nil {
		return fmt.Errorf("routing table: %w", err)
	}

	if validateFlags.checkSecret {
		src, err := secrets.FromConfig(&cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth secret: %w", err)
		}
		defer src.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Secret loaded from %s source\n", src.Provider())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", cfgFile)
	fmt.Fprintf(out, "  %d routes, %d services\n", len(table.Rules()), len(table.Services()))
	return nil
}
