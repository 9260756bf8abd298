package toolset

import (
	"io"

	"go.uber.org/zap"

	"genui/internal/domain"
)

type ManagerOptions struct {
	Logger  *zap.Logger
	Notices io.Writer
	Metrics domain.Metrics
}

// Manager answers toolset lookups over tables that are fixed at construction.
// All methods are safe for concurrent use.
type Manager struct {
	logger  *zap.Logger
	notices *NoticeWriter
	metrics domain.Metrics

	order       []string
	toolsets    map[string]domain.ToolsetDefinition
	aliases     map[string]string
	deprecation map[string]domain.DeprecationInfo
	statuses    map[string]domain.ToolsetStatus
	issues      []domain.LoadIssue
}

func NewManager(cfg domain.ToolsetConfig, opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}

	m := &Manager{
		logger:      logger.Named("toolset"),
		notices:     NewNoticeWriter(opts.Notices),
		metrics:     metrics,
		toolsets:    make(map[string]domain.ToolsetDefinition, len(cfg.Toolsets)),
		aliases:     make(map[string]string, len(cfg.Aliases)),
		deprecation: make(map[string]domain.DeprecationInfo, len(cfg.Deprecation)),
		issues:      append([]domain.LoadIssue(nil), cfg.Issues...),
	}
	for _, def := range cfg.Toolsets {
		if _, exists := m.toolsets[def.ID]; !exists {
			m.order = append(m.order, def.ID)
		}
		m.toolsets[def.ID] = def.Clone()
	}
	for alias, canonical := range cfg.Aliases {
		m.aliases[alias] = canonical
	}
	for id, info := range cfg.Deprecation {
		m.deprecation[id] = info
	}
	m.statuses = m.buildStatuses()

	metrics.SetToolsetsLoaded(len(m.order))
	m.logger.Info("toolset system initialized", zap.Int("toolsets", len(m.order)))
	if len(m.aliases) > 0 {
		m.logger.Info("loaded deprecation aliases", zap.Int("count", len(m.aliases)))
		for _, pair := range m.Aliases() {
			m.logger.Info("alias", zap.String("deprecated", pair.Deprecated), zap.String("canonical", pair.Canonical))
		}
	}
	return m
}

func (m *Manager) buildStatuses() map[string]domain.ToolsetStatus {
	statuses := make(map[string]domain.ToolsetStatus, len(m.order)+len(m.aliases))
	for alias, canonical := range m.aliases {
		info := m.deprecation[alias].WithDefaults()
		statuses[alias] = domain.ToolsetStatus{
			ID:        alias,
			Kind:      domain.ToolsetDeprecatedViaAlias,
			Canonical: canonical,
			Info:      &info,
		}
	}
	for _, id := range m.order {
		if _, aliased := statuses[id]; aliased {
			continue
		}
		def := m.toolsets[id]
		if !def.Metadata.Deprecated {
			statuses[id] = domain.ToolsetStatus{ID: id, Kind: domain.ToolsetActive}
			continue
		}
		info := domain.DeprecationInfoFromMetadata(def.Metadata).WithDefaults()
		statuses[id] = domain.ToolsetStatus{ID: id, Kind: domain.ToolsetDeprecatedFlag, Info: &info}
	}
	return statuses
}

// Resolve maps id to its canonical toolset id. Alias keys take precedence
// over catalog ids and emit a deprecation notice on every call. The
// canonical id of an alias is returned even when the catalog lacks it.
func (m *Manager) Resolve(id string) (string, bool) {
	if canonical, ok := m.aliases[id]; ok {
		m.metrics.ObserveToolsetResolution(domain.ResolveAlias)
		m.metrics.ObserveDeprecationNotice(id)
		if err := m.notices.Emit(id, canonical, m.deprecation[id]); err != nil {
			m.logger.Warn("failed to write deprecation notice", zap.String("toolset", id), zap.Error(err))
		}
		return canonical, true
	}
	if _, ok := m.toolsets[id]; ok {
		m.metrics.ObserveToolsetResolution(domain.ResolveDirect)
		return id, true
	}
	m.metrics.ObserveToolsetResolution(domain.ResolveNotFound)
	m.logger.Warn("toolset not found", zap.String("toolset", id))
	return "", false
}

// GetToolset resolves id and returns a copy of the canonical definition.
func (m *Manager) GetToolset(id string) (domain.ToolsetDefinition, bool) {
	canonical, ok := m.Resolve(id)
	if !ok {
		return domain.ToolsetDefinition{}, false
	}
	def, ok := m.toolsets[canonical]
	if !ok {
		return domain.ToolsetDefinition{}, false
	}
	return def.Clone(), true
}

// ListToolsets returns catalog entries in load order. Unless
// includeDeprecated is set, entries flagged deprecated in their own
// metadata are left out; alias membership does not matter here.
func (m *Manager) ListToolsets(includeDeprecated bool) []domain.ToolsetDefinition {
	out := make([]domain.ToolsetDefinition, 0, len(m.order))
	for _, id := range m.order {
		def := m.toolsets[id]
		if !includeDeprecated && def.Metadata.Deprecated {
			continue
		}
		out = append(out, def.Clone())
	}
	return out
}

// GetToolsetTools returns the tool names of the resolved toolset, or an
// empty slice when it cannot be found.
func (m *Manager) GetToolsetTools(id string) []string {
	def, ok := m.GetToolset(id)
	if !ok || def.Tools == nil {
		return []string{}
	}
	return def.Tools
}

// IsDeprecated reports whether id is an alias key.
func (m *Manager) IsDeprecated(id string) bool {
	_, ok := m.aliases[id]
	return ok
}

// DeprecationInfo returns the alias metadata recorded for id without resolving it.
func (m *Manager) DeprecationInfo(id string) (domain.DeprecationInfo, bool) {
	info, ok := m.deprecation[id]
	return info, ok
}

// Status returns the unified deprecation state of a catalog or alias id.
func (m *Manager) Status(id string) (domain.ToolsetStatus, bool) {
	status, ok := m.statuses[id]
	if !ok {
		return domain.ToolsetStatus{}, false
	}
	if status.Info != nil {
		info := *status.Info
		status.Info = &info
	}
	return status, true
}

// Statuses returns the status of every known id, sorted by id.
func (m *Manager) Statuses() []domain.ToolsetStatus {
	out := make([]domain.ToolsetStatus, 0, len(m.statuses))
	for _, id := range sortedKeys(m.statuses) {
		status, _ := m.Status(id)
		out = append(out, status)
	}
	return out
}

// Aliases returns every alias pair sorted by deprecated id.
func (m *Manager) Aliases() []domain.AliasPair {
	out := make([]domain.AliasPair, 0, len(m.aliases))
	for _, alias := range sortedKeys(m.aliases) {
		out = append(out, domain.AliasPair{Deprecated: alias, Canonical: m.aliases[alias]})
	}
	return out
}

func (m *Manager) Count() int {
	return len(m.order)
}

// IDs returns catalog ids in load order.
func (m *Manager) IDs() []string {
	return append([]string(nil), m.order...)
}

// Issues returns the problems recorded while loading.
func (m *Manager) Issues() []domain.LoadIssue {
	return append([]domain.LoadIssue(nil), m.issues...)
}
