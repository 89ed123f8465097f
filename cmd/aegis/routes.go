package main

import (
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/aegis/pkg/cli"
	"mercator-hq/aegis/pkg/routing"
)

var routesFlags struct {
	format string
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Show the routing table",
	Long: `Print the routing table built from the configuration, in match order
(longest prefix first).

Examples:
  aegis routes
  aegis routes --format json`,
	RunE: showRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringVarP(&routesFlags.format, "format", "f", "text", "output format: text, json, csv")
}

func showRoutes(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(routesFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := routing.NewTable(cfg.Routing, cfg.Breaker.Timeout)
	if err != nil {
		return cli.WrapConfigError(cfgFile, err)
	}

	out := &cli.Table{Headers: []string{"prefix", "service", "target", "auth", "roles", "timeout"}}
	for _, r := range table.Rules() {
		out.AddRow(
			r.Prefix,
			r.Service,
			r.Target.String(),
			string(r.Auth),
			strings.Join(r.Roles, ","),
			r.Timeout.String(),
		)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), out)
}
