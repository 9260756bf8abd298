//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewMetricsRegistry,
	NewMetrics,
)

var ToolsetSet = wire.NewSet(
	NewToolsetLoader,
	LoadToolsets,
	NewToolsetManager,
)

var WorkbenchSet = wire.NewSet(
	NewCanvasStore,
	NewSessionMemory,
	NewWorkbench,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	ToolsetSet,
	WorkbenchSet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
