package workbench

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"genui/internal/domain"
	"genui/internal/infra/canvas"
	"genui/internal/infra/memory"
	"genui/internal/infra/telemetry"
)

// PromptName is the MCP prompt that renders the workbench instruction.
const PromptName = "workbench"

// Toolsets is the part of the toolset manager the workbench needs to decide
// which tools to expose.
type Toolsets interface {
	GetToolsetTools(id string) []string
	ListToolsets(includeDeprecated bool) []domain.ToolsetDefinition
}

type Options struct {
	Name    string
	Version string
	// Enabled lists toolset ids whose tools are exposed. Empty exposes
	// every non-deprecated toolset.
	Enabled []string
	Canvas  *canvas.Store
	Memory  *memory.Service
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// Workbench is the MCP server exposing canvas tools to an LLM client.
type Workbench struct {
	server   *mcp.Server
	registry *toolRegistry
	canvas   *canvas.Store
	memory   *memory.Service
	enabled  []string
	logger   *zap.Logger
	metrics  domain.Metrics
}

func New(toolsets Toolsets, opts Options) *Workbench {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	store := opts.Canvas
	if store == nil {
		store = canvas.NewStore(canvas.Options{Logger: logger, Metrics: metrics})
	}
	name := opts.Name
	if name == "" {
		name = domain.DefaultServiceName
	}
	version := opts.Version
	if version == "" {
		version = domain.DefaultServiceVersion
	}

	w := &Workbench{
		canvas:  store,
		memory:  opts.Memory,
		enabled: append([]string(nil), opts.Enabled...),
		logger:  logger.Named("workbench"),
		metrics: metrics,
	}
	w.server = mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: canvas.BaseInstruction,
		HasTools:     true,
		HasPrompts:   true,
	})
	w.registry = newToolRegistry(w.server, canvasTools(), w.toolHandler, w.logger)
	w.server.AddPrompt(&mcp.Prompt{
		Name:        PromptName,
		Description: "Workbench system instruction with the current canvas elements",
		Arguments: []*mcp.PromptArgument{
			{Name: "session", Description: "Canvas session id; defaults to the calling session"},
		},
	}, w.promptHandler)
	w.ApplyToolsets(toolsets)
	return w
}

// ExposedTools returns the union of tool names of the enabled toolsets,
// in first-seen order. With no enabled list every non-deprecated toolset
// contributes.
func ExposedTools(toolsets Toolsets, enabled []string) []string {
	if toolsets == nil {
		return nil
	}
	ids := enabled
	if len(ids) == 0 {
		for _, def := range toolsets.ListToolsets(false) {
			ids = append(ids, def.ID)
		}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, id := range ids {
		for _, tool := range toolsets.GetToolsetTools(id) {
			if _, ok := seen[tool]; ok {
				continue
			}
			seen[tool] = struct{}{}
			out = append(out, tool)
		}
	}
	return out
}

// ApplyToolsets recomputes the exposed tool list and updates the server.
func (w *Workbench) ApplyToolsets(toolsets Toolsets) []string {
	names := ExposedTools(toolsets, w.enabled)
	active := w.registry.Apply(names)
	if len(active) == 0 {
		w.logger.Warn("no workbench tools exposed", zap.Strings("enabled", w.enabled))
	} else {
		w.logger.Info("workbench tools exposed", zap.Strings("tools", active))
	}
	return active
}

func (w *Workbench) Tools() []string {
	return w.registry.Registered()
}

func (w *Workbench) Server() *mcp.Server {
	return w.server
}

func (w *Workbench) Canvas() *canvas.Store {
	return w.canvas
}

// RunStdio serves the workbench over stdin/stdout until ctx is done.
func (w *Workbench) RunStdio(ctx context.Context) error {
	w.logger.Info("workbench starting (stdio transport)")
	return w.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the workbench over the streamable HTTP transport.
func (w *Workbench) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return w.server
	}, nil)
}

func (w *Workbench) toolHandler(spec toolSpec) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		args := map[string]any{}
		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid arguments: %v", err)}
			}
		}
		var session *mcp.ServerSession
		if req != nil {
			session = req.Session
		}
		sessionID := sessionIDOf(session)

		var previous any
		if w.memory != nil && spec.stateKey != "" {
			previous = w.stateValue(spec.stateKey, sessionID)
		}

		outcome := spec.run(w.canvas, sessionID, args)
		elapsed := time.Since(start)
		w.metrics.ObserveToolCall(spec.name, outcome.Status, elapsed)
		w.logger.Debug("tool call",
			telemetry.EventField(telemetry.EventToolCall),
			telemetry.ToolField(spec.name),
			telemetry.SessionField(sessionID),
			zap.String("status", string(outcome.Status)),
			telemetry.DurationField(elapsed),
		)

		w.remember(ctx, spec, sessionID, args, outcome, previous)
		return buildCallToolResult(outcome), nil
	}
}

// remember records the call in session memory. Failures are logged only.
func (w *Workbench) remember(ctx context.Context, spec toolSpec, sessionID string, args map[string]any, outcome domain.ToolOutcome, previous any) {
	if w.memory == nil {
		return
	}
	success := outcome.Status != domain.ToolStatusError
	if _, err := w.memory.StoreToolOutput(ctx, spec.name, args, outcome, success); err != nil {
		w.logger.Warn("store tool output failed", telemetry.ToolField(spec.name), zap.Error(err))
	}
	if spec.stateKey == "" || outcome.Status != domain.ToolStatusSuccess {
		return
	}
	current := w.stateValue(spec.stateKey, sessionID)
	if _, err := w.memory.StoreStateChange(ctx, spec.stateKey, current, previous); err != nil {
		w.logger.Warn("store state change failed", zap.String("key", spec.stateKey), zap.Error(err))
	}
}

func (w *Workbench) stateValue(key, sessionID string) any {
	switch key {
	case stateKeyElements:
		return w.canvas.Snapshot(sessionID).Elements
	case stateKeyThemeColor:
		color := w.canvas.Snapshot(sessionID).ThemeColor
		if color == "" {
			return nil
		}
		return color
	default:
		return nil
	}
}

func (w *Workbench) promptHandler(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var session *mcp.ServerSession
	sessionID := ""
	if req != nil {
		session = req.Session
		if req.Params != nil {
			sessionID = req.Params.Arguments["session"]
		}
	}
	if sessionID == "" {
		sessionID = sessionIDOf(session)
	}
	return &mcp.GetPromptResult{
		Description: "Workbench instruction for session " + sessionID,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: w.canvas.Instruction(sessionID)}},
		},
	}, nil
}

func sessionIDOf(session *mcp.ServerSession) string {
	if session != nil {
		if id := session.ID(); id != "" {
			return id
		}
	}
	return domain.DefaultCanvasSessionID
}
