package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"genui/internal/domain"
	"genui/internal/infra/toolset"
)

// ValidationReport summarizes one load of the toolset documents.
type ValidationReport struct {
	CatalogPath string             `json:"catalog_path"`
	AliasesPath string             `json:"aliases_path"`
	Toolsets    int                `json:"toolsets"`
	Aliases     int                `json:"aliases"`
	Issues      []domain.LoadIssue `json:"issues"`
}

// OK reports whether the documents loaded without issues.
func (r ValidationReport) OK() bool {
	return len(r.Issues) == 0
}

// ErrValidationIssues is returned by ValidateToolsets when any document had
// problems. The report still describes what was loaded.
var ErrValidationIssues = errors.New("toolset configuration has issues")

// ValidateToolsets loads the toolset documents named by cfg and reports
// what would be served.
func ValidateToolsets(ctx context.Context, cfg domain.Config, logger *zap.Logger) (ValidationReport, error) {
	loaded, err := toolset.NewLoader(logger).Load(ctx, cfg.Toolsets.Sources())
	if err != nil {
		return ValidationReport{}, err
	}
	report := newValidationReport(cfg.Toolsets.Sources(), loaded)
	if !report.OK() {
		return report, fmt.Errorf("%w: %d issue(s)", ErrValidationIssues, len(report.Issues))
	}
	return report, nil
}

// WatchToolsets re-validates the documents on every change until ctx is
// done. A running server is never touched.
func WatchToolsets(ctx context.Context, cfg domain.Config, logger *zap.Logger, onReport func(ValidationReport)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	sources := cfg.Toolsets.Sources()
	loader := toolset.NewLoader(logger)
	watcher := toolset.NewWatcher(loader, sources, logger)
	return watcher.Run(ctx, func(loaded domain.ToolsetConfig) {
		report := newValidationReport(sources, loaded)
		logger.Info("toolset configuration revalidated",
			zap.Int("toolsets", report.Toolsets),
			zap.Int("aliases", report.Aliases),
			zap.Int("issues", len(report.Issues)),
		)
		if onReport != nil {
			onReport(report)
		}
	})
}

// OpenToolsets loads the documents and builds a manager for one-shot use.
func OpenToolsets(ctx context.Context, cfg domain.Config, opts RuntimeOptions, logger *zap.Logger) (*toolset.Manager, error) {
	loaded, err := LoadToolsets(ctx, cfg, NewToolsetLoader(logger))
	if err != nil {
		return nil, err
	}
	return NewToolsetManager(loaded, opts, nil, logger), nil
}

func newValidationReport(sources domain.ToolsetSources, loaded domain.ToolsetConfig) ValidationReport {
	issues := loaded.Issues
	if issues == nil {
		issues = []domain.LoadIssue{}
	}
	return ValidationReport{
		CatalogPath: sources.CatalogPath,
		AliasesPath: sources.AliasesPath,
		Toolsets:    len(loaded.Toolsets),
		Aliases:     len(loaded.Aliases),
		Issues:      issues,
	}
}
