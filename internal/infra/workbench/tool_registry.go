package workbench

import (
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// toolRegistry keeps the server's tool list in sync with the exposed names.
type toolRegistry struct {
	server     *mcp.Server
	specs      map[string]toolSpec
	handler    func(spec toolSpec) mcp.ToolHandler
	logger     *zap.Logger
	mu         sync.Mutex
	registered map[string]struct{}
}

func newToolRegistry(server *mcp.Server, specs []toolSpec, handler func(spec toolSpec) mcp.ToolHandler, logger *zap.Logger) *toolRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]toolSpec, len(specs))
	for _, spec := range specs {
		byName[spec.name] = spec
	}
	return &toolRegistry{
		server:     server,
		specs:      byName,
		handler:    handler,
		logger:     logger.Named("tool_registry"),
		registered: make(map[string]struct{}),
	}
}

// Apply registers every name with a known handler and removes tools that
// are no longer exposed. It returns the registered names in input order.
func (r *toolRegistry) Apply(names []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]struct{}, len(names))
	active := make([]string, 0, len(names))
	for _, name := range names {
		if _, dup := next[name]; dup {
			continue
		}
		spec, ok := r.specs[name]
		if !ok {
			r.logger.Warn("skip tool without handler", zap.String("tool", name))
			continue
		}
		if _, exists := r.registered[name]; !exists {
			r.server.AddTool(&mcp.Tool{
				Name:        spec.name,
				Description: spec.description,
				InputSchema: spec.schema,
			}, r.handler(spec))
		}
		next[name] = struct{}{}
		active = append(active, name)
	}

	var remove []string
	for name := range r.registered {
		if _, ok := next[name]; !ok {
			remove = append(remove, name)
		}
	}
	if len(remove) > 0 {
		sort.Strings(remove)
		r.server.RemoveTools(remove...)
		r.logger.Info("removed tools", zap.Strings("tools", remove))
	}

	r.registered = next
	return active
}

func (r *toolRegistry) Registered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.registered))
	for name := range r.registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
