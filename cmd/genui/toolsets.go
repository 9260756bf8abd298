package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"genui/internal/app"
	"genui/internal/infra/toolset"
)

func newToolsetsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toolsets",
		Short: "Inspect the toolset catalog and deprecation aliases",
	}
	cmd.AddCommand(
		newToolsetsListCmd(opts),
		newToolsetsShowCmd(opts),
		newToolsetsResolveCmd(opts),
		newToolsetsStatusCmd(opts),
		newToolsetsAliasesCmd(opts),
	)
	return cmd
}

func openToolsets(cmd *cobra.Command, opts *cliOptions) (*toolset.Manager, error) {
	return app.OpenToolsets(cmd.Context(), opts.cfg, opts.runtimeOptions(cmd), opts.logger)
}

func newToolsetsListCmd(opts *cliOptions) *cobra.Command {
	var includeDeprecated bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List toolsets in catalog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openToolsets(cmd, opts)
			if err != nil {
				return err
			}
			return printToolsets(cmd.OutOrStdout(), mgr.ListToolsets(includeDeprecated), opts.jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&includeDeprecated, "include-deprecated", false, "include toolsets flagged deprecated in the catalog")
	return cmd
}

func newToolsetsShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a toolset, resolving deprecated aliases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openToolsets(cmd, opts)
			if err != nil {
				return err
			}
			def, ok := mgr.GetToolset(args[0])
			if !ok {
				return fmt.Errorf("toolset not found: %s", args[0])
			}
			return printToolset(cmd.OutOrStdout(), def, opts.jsonOutput)
		},
	}
}

func newToolsetsResolveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Resolve toolset ids to their canonical ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openToolsets(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			type resolution struct {
				ID        string `json:"id"`
				Canonical string `json:"canonical,omitempty"`
				Found     bool   `json:"found"`
			}
			results := make([]resolution, 0, len(args))
			for _, id := range args {
				canonical, ok := mgr.Resolve(id)
				results = append(results, resolution{ID: id, Canonical: canonical, Found: ok})
			}
			if opts.jsonOutput {
				return writeJSON(out, map[string]any{"resolutions": results})
			}
			for _, r := range results {
				if !r.Found {
					fmt.Fprintf(out, "%s: not found\n", r.ID)
					continue
				}
				fmt.Fprintf(out, "%s -> %s\n", r.ID, r.Canonical)
			}
			return nil
		},
	}
}

func newToolsetsStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]",
		Short: "Show the deprecation status of one or all toolset ids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openToolsets(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				status, ok := mgr.Status(args[0])
				if !ok {
					return fmt.Errorf("toolset not found: %s", args[0])
				}
				return printStatus(out, status, opts.jsonOutput)
			}
			statuses := mgr.Statuses()
			if opts.jsonOutput {
				return writeJSON(out, map[string]any{"statuses": statuses})
			}
			for _, status := range statuses {
				if err := printStatus(out, status, false); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newToolsetsAliasesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "aliases",
		Short: "List deprecated aliases and their canonical ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openToolsets(cmd, opts)
			if err != nil {
				return err
			}
			return printAliases(cmd.OutOrStdout(), mgr.Aliases(), opts.jsonOutput)
		},
	}
}
