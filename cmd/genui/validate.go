package main

import (
	"errors"

	"github.com/spf13/cobra"

	"genui/internal/app"
)

func newValidateCmd(opts *cliOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the toolset catalog and alias documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			report, err := app.ValidateToolsets(cmd.Context(), opts.cfg, opts.logger)
			if err != nil && !errors.Is(err, app.ErrValidationIssues) {
				return err
			}
			if printErr := printValidationReport(out, report, opts.jsonOutput); printErr != nil {
				return printErr
			}
			if !watch {
				return err
			}

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()
			return app.WatchToolsets(ctx, opts.cfg, opts.logger, func(report app.ValidationReport) {
				_ = printValidationReport(out, report, opts.jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-validate when the documents change")
	return cmd
}
