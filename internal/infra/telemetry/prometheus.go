package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"genui/internal/domain"
)

type PrometheusMetrics struct {
	toolsetResolutions *prometheus.CounterVec
	deprecationNotices *prometheus.CounterVec
	toolsetsLoaded     prometheus.Gauge
	toolCallDuration   *prometheus.HistogramVec
	memoryOperations   *prometheus.CounterVec
	canvasSessions     prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		toolsetResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genui_toolset_resolutions_total",
				Help: "Total number of toolset id resolutions by outcome",
			},
			[]string{"outcome"},
		),
		deprecationNotices: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genui_toolset_deprecation_notices_total",
				Help: "Total number of deprecation notices emitted per deprecated id",
			},
			[]string{"toolset"},
		),
		toolsetsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "genui_toolsets_loaded",
				Help: "Number of toolsets in the active catalog",
			},
		),
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "genui_tool_call_duration_seconds",
				Help:    "Duration of workbench tool calls in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"tool", "status"},
		),
		memoryOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genui_memory_operations_total",
				Help: "Total number of session memory operations",
			},
			[]string{"operation", "status"},
		),
		canvasSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "genui_canvas_sessions",
				Help: "Number of live canvas sessions",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveToolsetResolution(outcome domain.ResolveOutcome) {
	p.toolsetResolutions.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusMetrics) ObserveDeprecationNotice(toolsetID string) {
	p.deprecationNotices.WithLabelValues(toolsetID).Inc()
}

func (p *PrometheusMetrics) SetToolsetsLoaded(count int) {
	p.toolsetsLoaded.Set(float64(count))
}

func (p *PrometheusMetrics) ObserveToolCall(tool string, status domain.ToolStatus, duration time.Duration) {
	p.toolCallDuration.WithLabelValues(tool, string(status)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveMemoryOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.memoryOperations.WithLabelValues(operation, status).Inc()
}

func (p *PrometheusMetrics) SetCanvasSessions(count int) {
	p.canvasSessions.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
