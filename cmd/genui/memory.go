package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"genui/internal/domain"
	"genui/internal/infra/memory"
)

func newMemoryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect or clear the configured session memory",
	}
	cmd.AddCommand(
		newMemorySummaryCmd(opts),
		newMemorySearchCmd(opts),
		newMemoryClearCmd(opts),
	)
	return cmd
}

// openMemory opens the session named by memory.sessionId. Without a fixed
// session id a fresh, empty session would be inspected, so one is required.
func openMemory(ctx context.Context, opts *cliOptions) (*memory.Service, error) {
	cfg := opts.cfg.Memory
	if !cfg.Enabled {
		return nil, domain.ErrMemoryDisabled
	}
	if cfg.SessionID == "" {
		return nil, domain.E(domain.CodeInvalidArgument, "memory", "memory.sessionId must be set to inspect a session", nil)
	}
	return memory.Open(ctx, cfg, opts.logger, nil)
}

func newMemorySummaryCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show collection sizes and current state of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openMemory(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			summary, err := svc.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary, opts.jsonOutput)
		},
	}
}

func newMemorySearchCmd(opts *cliOptions) *cobra.Command {
	var (
		collection string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a session memory collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openMemory(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			matches, err := svc.SearchContext(cmd.Context(), args[0], domain.MemoryCollection(collection), limit, nil)
			if err != nil {
				return err
			}
			return printMatches(cmd.OutOrStdout(), matches, opts.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", string(domain.CollectionInteractions), "collection to search (interactions, state, context, tools, observations)")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultSearchResults, "maximum number of results")
	return cmd
}

func newMemoryClearCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop and recreate every collection of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openMemory(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Clear(cmd.Context()); err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"status": "cleared", "session_id": svc.SessionID()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared session %s\n", svc.SessionID())
			return nil
		},
	}
}
