package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"genui/internal/app"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the streamable MCP endpoint at /mcp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			cfg := opts.cfg
			if listen != "" {
				cfg.HTTP.ListenAddress = listen
			}
			application, cleanup, err := app.InitializeApplication(ctx, cfg, opts.runtimeOptions(cmd), opts.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			opts.logger.Info("configuration loaded", zap.String("config", opts.configPath), zap.String("listen", cfg.HTTP.ListenAddress))
			return application.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override http.listenAddress")
	return cmd
}

func newMCPCmd(opts *cliOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the workbench tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			application, cleanup, err := app.InitializeApplication(ctx, opts.cfg, opts.runtimeOptions(cmd), opts.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			return application.RunMCP(ctx, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running over stdio")
	return cmd
}
