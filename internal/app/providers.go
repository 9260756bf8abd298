package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"genui/internal/domain"
	"genui/internal/infra/canvas"
	"genui/internal/infra/memory"
	"genui/internal/infra/telemetry"
	"genui/internal/infra/toolset"
	"genui/internal/infra/workbench"
)

// RuntimeOptions carries process-level settings that do not come from the
// config file.
type RuntimeOptions struct {
	// Notices receives deprecation notices. Nil means stderr.
	Notices io.Writer
}

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewToolsetLoader(logger *zap.Logger) *toolset.Loader {
	return toolset.NewLoader(logger)
}

// LoadToolsets reads both toolset documents. Problems inside the documents
// come back as issues on the config, never as errors.
func LoadToolsets(ctx context.Context, cfg domain.Config, loader *toolset.Loader) (domain.ToolsetConfig, error) {
	return loader.Load(ctx, cfg.Toolsets.Sources())
}

func NewToolsetManager(toolsets domain.ToolsetConfig, opts RuntimeOptions, metrics domain.Metrics, logger *zap.Logger) *toolset.Manager {
	notices := opts.Notices
	if notices == nil {
		notices = os.Stderr
	}
	return toolset.NewManager(toolsets, toolset.ManagerOptions{
		Logger:  logger,
		Notices: notices,
		Metrics: metrics,
	})
}

func NewCanvasStore(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) *canvas.Store {
	return canvas.NewStore(canvas.Options{
		SessionTimeout: time.Duration(cfg.Canvas.SessionTimeoutSeconds) * time.Second,
		Logger:         logger,
		Metrics:        metrics,
	})
}

// NewSessionMemory opens session memory when enabled. The service is nil
// when memory is disabled.
func NewSessionMemory(ctx context.Context, cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) (*memory.Service, func(), error) {
	svc, err := memory.Open(ctx, cfg.Memory, logger, metrics)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if svc == nil {
			return
		}
		if err := svc.Close(); err != nil {
			logger.Warn("close session memory failed", zap.Error(err))
		}
	}
	return svc, cleanup, nil
}

func NewWorkbench(
	cfg domain.Config,
	manager *toolset.Manager,
	store *canvas.Store,
	mem *memory.Service,
	metrics domain.Metrics,
	logger *zap.Logger,
) *workbench.Workbench {
	return workbench.New(manager, workbench.Options{
		Name:    cfg.Service.Name,
		Version: cfg.Service.Version,
		Enabled: cfg.Toolsets.Enabled,
		Canvas:  store,
		Memory:  mem,
		Logger:  logger,
		Metrics: metrics,
	})
}
