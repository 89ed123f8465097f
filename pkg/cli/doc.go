/*
Package cli provides helpers shared by the aegis commands.

Errors:

ConfigError marks an unusable configuration file or flag and makes the
process exit with ExitConfigError. CommandError wraps any other failure.

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return cli.WrapConfigError(path, err)
	}

	os.Exit(cli.ExitCode(rootCmd.Execute()))

Output Formatting:

Tabular results are written as aligned text, JSON or CSV:

	table := &cli.Table{Headers: []string{"prefix", "service", "target"}}
	table.AddRow("/api/v1/identity", "identity", "http://identity:3001")

	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	return srv.Run(ctx)
*/
package cli
