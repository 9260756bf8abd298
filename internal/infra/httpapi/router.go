package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"genui/internal/domain"
	"genui/internal/infra/canvas"
	"genui/internal/infra/memory"
	"genui/internal/infra/telemetry"
)

// timestampLayout mirrors the naive ISO timestamps of the agent API.
const timestampLayout = "2006-01-02T15:04:05.000000"

// Toolsets is the read side of the toolset manager.
type Toolsets interface {
	ListToolsets(includeDeprecated bool) []domain.ToolsetDefinition
	GetToolset(id string) (domain.ToolsetDefinition, bool)
	GetToolsetTools(id string) []string
	IsDeprecated(id string) bool
	DeprecationInfo(id string) (domain.DeprecationInfo, bool)
	Status(id string) (domain.ToolsetStatus, bool)
	Aliases() []domain.AliasPair
	Count() int
}

type Options struct {
	Service       domain.ServiceConfig
	Toolsets      Toolsets
	Canvas        *canvas.Store
	Memory        *memory.Service
	MCP           http.Handler
	EnableMetrics bool
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
	Now           func() time.Time
}

type api struct {
	service  domain.ServiceConfig
	toolsets Toolsets
	canvas   *canvas.Store
	memory   *memory.Service
	logger   *zap.Logger
	now      func() time.Time
}

// NewRouter builds the HTTP surface: probes, metrics, the toolset and
// canvas read API, the session memory API and the MCP endpoint.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	a := &api{
		service:  opts.Service,
		toolsets: opts.Toolsets,
		canvas:   opts.Canvas,
		memory:   opts.Memory,
		logger:   logger.Named("http"),
		now:      now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(telemetry.RequestIDMiddleware)
	r.Use(requestLogger(a.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", a.handleHealth)
	r.Get("/ready", a.handleReady)
	if opts.EnableMetrics {
		r.Handle("/metrics", telemetry.MetricsHandler(opts.Gatherer))
	}
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/toolsets", func(r chi.Router) {
			r.Get("/", a.listToolsets)
			r.Get("/{id}", a.getToolset)
			r.Get("/{id}/tools", a.getToolsetTools)
			r.Get("/{id}/deprecation", a.getDeprecation)
			r.Get("/{id}/status", a.getStatus)
		})
		api.Get("/toolset-aliases", a.listAliases)
		api.Get("/canvas/{session}", a.getCanvas)
		api.Route("/memory", a.memoryRoutes)
	})

	return r
}

func (a *api) timestamp() string {
	return a.now().UTC().Format(timestampLayout)
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   a.service.Name,
		"version":   a.service.Version,
		"timestamp": a.timestamp(),
		"model":     a.service.Model,
	})
}

func (a *api) handleReady(w http.ResponseWriter, r *http.Request) {
	var toolsets []domain.ToolsetDefinition
	if a.toolsets != nil {
		toolsets = a.toolsets.ListToolsets(false)
	}
	if len(toolsets) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"dependencies": map[string]any{
				"toolsets_loaded": false,
				"toolset_count":   0,
			},
			"timestamp": a.timestamp(),
		})
		return
	}

	preview := make([]string, 0, domain.DefaultReadyToolsetPreview)
	for i, def := range toolsets {
		if i == domain.DefaultReadyToolsetPreview {
			break
		}
		preview = append(preview, def.ID)
	}
	allowed := make([]string, 0, len(domain.AllowedElementTypes))
	for _, t := range domain.AllowedElementTypes {
		allowed = append(allowed, string(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"dependencies": map[string]any{
			"toolsets_loaded": true,
			"toolset_count":   len(toolsets),
			"toolsets":        preview,
			"model":           a.service.Model,
			"allowed_types":   allowed,
		},
		"timestamp": a.timestamp(),
	})
}

func (a *api) listToolsets(w http.ResponseWriter, r *http.Request) {
	includeDeprecated := false
	if raw := r.URL.Query().Get("include_deprecated"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, domain.CodeInvalidArgument, "include_deprecated must be a boolean")
			return
		}
		includeDeprecated = parsed
	}
	writeJSON(w, http.StatusOK, map[string]any{"toolsets": a.toolsets.ListToolsets(includeDeprecated)})
}

func (a *api) listAliases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"aliases": a.toolsets.Aliases()})
}

func (a *api) getToolset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, ok := a.toolsets.GetToolset(id)
	if !ok {
		writeErr(w, http.StatusNotFound, domain.CodeNotFound, "toolset not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (a *api) getToolsetTools(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "tools": a.toolsets.GetToolsetTools(id)})
}

func (a *api) getDeprecation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body := map[string]any{"id": id, "deprecated": a.toolsets.IsDeprecated(id)}
	if info, ok := a.toolsets.DeprecationInfo(id); ok {
		body["info"] = info
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *api) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, ok := a.toolsets.Status(id)
	if !ok {
		writeErr(w, http.StatusNotFound, domain.CodeNotFound, "toolset not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *api) getCanvas(w http.ResponseWriter, r *http.Request) {
	if a.canvas == nil {
		writeErr(w, http.StatusServiceUnavailable, domain.CodeUnavailable, "canvas is not configured")
		return
	}
	writeJSON(w, http.StatusOK, a.canvas.Snapshot(chi.URLParam(r, "session")))
}
