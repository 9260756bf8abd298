package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"genui/internal/app"
	"genui/internal/domain"
)

type cliOptions struct {
	configPath string
	jsonOutput bool
	logLevel   string

	cfg    domain.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := cliOptions{
		configPath: "genui.yaml",
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "genui",
		Short:         "Generative UI workbench backend with toolset catalog and session memory",
		Version:       app.Version + " (" + app.Build + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyRootFlagBindings(cmd, &opts)
			return opts.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to the genui config file")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(&opts),
		newMCPCmd(&opts),
		newValidateCmd(&opts),
		newToolsetsCmd(&opts),
		newMemoryCmd(&opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config":
			opts.configPath, _ = flags.GetString("config")
		case "json":
			opts.jsonOutput, _ = flags.GetBool("json")
		case "log-level":
			opts.logLevel, _ = flags.GetString("log-level")
		}
	})
}

// load reads the config file and builds the process logger.
func (o *cliOptions) load() error {
	bootstrap, err := app.NewLogger(domain.LogConfig{Level: o.logLevel})
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(o.configPath, bootstrap)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

// runtimeOptions sends deprecation notices to the command's error stream.
func (o *cliOptions) runtimeOptions(cmd *cobra.Command) app.RuntimeOptions {
	return app.RuntimeOptions{Notices: cmd.ErrOrStderr()}
}
