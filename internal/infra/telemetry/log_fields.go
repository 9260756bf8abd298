package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldToolset    = "toolset"
	FieldCanonical  = "canonical"
	FieldSession    = "session"
	FieldTool       = "tool"
	FieldCollection = "collection"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
)

const (
	EventToolCall        = "tool_call"
	EventToolsetReload   = "toolset_reload"
	EventCanvasSweep     = "canvas_sweep"
	EventMemoryOperation = "memory_operation"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolsetField(id string) zap.Field {
	return zap.String(FieldToolset, id)
}

func CanonicalField(id string) zap.Field {
	return zap.String(FieldCanonical, id)
}

func SessionField(id string) zap.Field {
	return zap.String(FieldSession, id)
}

func ToolField(name string) zap.Field {
	return zap.String(FieldTool, name)
}

func CollectionField(name string) zap.Field {
	return zap.String(FieldCollection, name)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}
