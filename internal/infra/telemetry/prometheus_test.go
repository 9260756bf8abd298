package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genui/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.toolsetResolutions)
	assert.NotNil(t, m.deprecationNotices)
	assert.NotNil(t, m.toolsetsLoaded)
	assert.NotNil(t, m.toolCallDuration)
	assert.NotNil(t, m.memoryOperations)
	assert.NotNil(t, m.canvasSessions)
}

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveToolsetResolution(domain.ResolveAlias)
	m.ObserveDeprecationNotice("legacy_ui")
	m.SetToolsetsLoaded(3)
	m.ObserveToolCall(domain.ToolUpsertUIElement, domain.ToolStatusSuccess, 2*time.Millisecond)
	m.ObserveMemoryOperation("search", nil)
	m.SetCanvasSessions(1)

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.GetName())
	}

	assert.Contains(t, names, "genui_toolset_resolutions_total")
	assert.Contains(t, names, "genui_toolset_deprecation_notices_total")
	assert.Contains(t, names, "genui_toolsets_loaded")
	assert.Contains(t, names, "genui_tool_call_duration_seconds")
	assert.Contains(t, names, "genui_memory_operations_total")
	assert.Contains(t, names, "genui_canvas_sessions")
}

func TestPrometheusMetrics_Values(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveToolsetResolution(domain.ResolveDirect)
	m.ObserveToolsetResolution(domain.ResolveDirect)
	m.ObserveToolsetResolution(domain.ResolveNotFound)
	m.ObserveDeprecationNotice("legacy_ui")
	m.SetToolsetsLoaded(4)
	m.SetCanvasSessions(2)
	m.ObserveMemoryOperation("store_interaction", nil)
	m.ObserveMemoryOperation("store_interaction", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolsetResolutions.WithLabelValues("direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolsetResolutions.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deprecationNotices.WithLabelValues("legacy_ui")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.toolsetsLoaded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.canvasSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.memoryOperations.WithLabelValues("store_interaction", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.memoryOperations.WithLabelValues("store_interaction", "error")))
}

func TestPrometheusMetrics_ImplementsInterface(t *testing.T) {
	var _ domain.Metrics = (*PrometheusMetrics)(nil)
}
