package domain

import "time"

// ResolveOutcome labels how a toolset id was resolved.
type ResolveOutcome string

const (
	ResolveDirect   ResolveOutcome = "direct"
	ResolveAlias    ResolveOutcome = "alias"
	ResolveNotFound ResolveOutcome = "not_found"
)

// Metrics records observability signals.
type Metrics interface {
	ObserveToolsetResolution(outcome ResolveOutcome)
	ObserveDeprecationNotice(toolsetID string)
	SetToolsetsLoaded(count int)
	ObserveToolCall(tool string, status ToolStatus, duration time.Duration)
	ObserveMemoryOperation(operation string, err error)
	SetCanvasSessions(count int)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveToolsetResolution(ResolveOutcome) {}
func (NoopMetrics) ObserveDeprecationNotice(string) {}
func (NoopMetrics) SetToolsetsLoaded(int) {}
func (NoopMetrics) ObserveToolCall(string, ToolStatus, time.Duration) {}
func (NoopMetrics) ObserveMemoryOperation(string, error) {}
func (NoopMetrics) SetCanvasSessions(int) {}
