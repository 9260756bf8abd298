package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"genui/internal/domain"
	"genui/internal/infra/canvas"
	"genui/internal/infra/httpapi"
	"genui/internal/infra/memory"
	"genui/internal/infra/telemetry"
	"genui/internal/infra/toolset"
	"genui/internal/infra/workbench"
)

// Application owns the wired runtime: the toolset manager, the canvas,
// session memory and the MCP workbench.
type Application struct {
	cfg       domain.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	toolsets  *toolset.Manager
	canvas    *canvas.Store
	memory    *memory.Service
	workbench *workbench.Workbench
}

type ApplicationOptions struct {
	Config    domain.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Toolsets  *toolset.Manager
	Canvas    *canvas.Store
	Memory    *memory.Service
	Workbench *workbench.Workbench
}

func NewApplication(opts ApplicationOptions) *Application {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		cfg:       opts.Config,
		logger:    logger.Named("app"),
		registry:  opts.Registry,
		toolsets:  opts.Toolsets,
		canvas:    opts.Canvas,
		memory:    opts.Memory,
		workbench: opts.Workbench,
	}
}

func (a *Application) Toolsets() *toolset.Manager {
	return a.toolsets
}

// Memory returns the session memory service, nil when disabled.
func (a *Application) Memory() *memory.Service {
	return a.memory
}

func (a *Application) Workbench() *workbench.Workbench {
	return a.workbench
}

// Handler builds the HTTP surface served by Serve.
func (a *Application) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Options{
		Service:       a.cfg.Service,
		Toolsets:      a.toolsets,
		Canvas:        a.canvas,
		Memory:        a.memory,
		MCP:           a.workbench.HTTPHandler(),
		EnableMetrics: a.cfg.HTTP.EnableMetrics,
		Gatherer:      a.registry,
		Logger:        a.logger,
	})
}

// Serve runs the HTTP API and the streamable MCP endpoint until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	a.logStartup()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.canvas.Run(ctx, a.sweepInterval())
	return httpapi.Serve(ctx, a.cfg.HTTP.ListenAddress, a.Handler(), a.logger)
}

// RunMCP serves the workbench over stdio. When metricsAddr is set, metrics
// and a health probe are served there alongside.
func (a *Application) RunMCP(ctx context.Context, metricsAddr string) error {
	a.logStartup()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.canvas.Run(ctx, a.sweepInterval())
	if metricsAddr != "" {
		go func() {
			err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:          metricsAddr,
				EnableMetrics: a.cfg.HTTP.EnableMetrics,
				EnableHealthz: true,
				Health:        a.health,
				Registry:      a.registry,
			}, a.logger)
			if err != nil {
				a.logger.Warn("observability server failed", zap.Error(err))
			}
		}()
	}

	err := a.workbench.RunStdio(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Application) health() telemetry.HealthReport {
	count := a.toolsets.Count()
	report := telemetry.HealthReport{
		Status:   "ok",
		Service:  a.cfg.Service.Name,
		Toolsets: count,
		Details: map[string]any{
			"tools":           a.workbench.Tools(),
			"canvas_sessions": a.canvas.Size(),
			"memory_enabled":  a.memory != nil,
		},
	}
	if count == 0 {
		report.Status = "degraded"
	}
	return report
}

func (a *Application) sweepInterval() time.Duration {
	return time.Duration(a.cfg.Canvas.SweepIntervalSeconds) * time.Second
}

func (a *Application) logStartup() {
	fields := []zap.Field{
		zap.String("service", a.cfg.Service.Name),
		zap.String("version", a.cfg.Service.Version),
		zap.String("model", a.cfg.Service.Model),
		zap.Int("toolsets", a.toolsets.Count()),
		zap.Int("load_issues", len(a.toolsets.Issues())),
		zap.Strings("tools", a.workbench.Tools()),
		zap.Bool("memory", a.memory != nil),
	}
	if a.memory != nil {
		fields = append(fields, telemetry.SessionField(a.memory.SessionID()), zap.String("memory_mode", string(a.memory.Mode())))
	}
	a.logger.Info("starting genui workbench", fields...)
	if a.toolsets.Count() == 0 {
		a.logger.Warn("no toolsets loaded; readiness probe will report not ready")
	}
}
