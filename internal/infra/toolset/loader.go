package toolset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"genui/internal/domain"
)

const (
	sourceCatalog = "catalog"
	sourceAliases = "aliases"

	keyToolsets    = "toolsets"
	keyAliases     = "aliases"
	keyDeprecation = "deprecation_metadata"
)

// Loader reads the toolset catalog and alias documents. Problems in either
// document never fail the load: they are logged and returned as issues.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("toolset")}
}

// Load reads both documents. The only error it returns is ctx's.
func (l *Loader) Load(ctx context.Context, sources domain.ToolsetSources) (domain.ToolsetConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.ToolsetConfig{}, err
	}

	cfg := domain.ToolsetConfig{
		Aliases:     map[string]string{},
		Deprecation: map[string]domain.DeprecationInfo{},
	}

	toolsets, issues := l.loadCatalog(sources.CatalogPath)
	cfg.Toolsets = toolsets
	cfg.Issues = append(cfg.Issues, issues...)

	if err := ctx.Err(); err != nil {
		return domain.ToolsetConfig{}, err
	}

	aliases, deprecation, issues := l.loadAliases(sources.AliasesPath)
	cfg.Aliases = aliases
	cfg.Deprecation = deprecation
	cfg.Issues = append(cfg.Issues, issues...)

	cfg.Issues = append(cfg.Issues, l.checkAliasTargets(sources.AliasesPath, cfg)...)
	return cfg, nil
}

func (l *Loader) loadCatalog(path string) ([]domain.ToolsetDefinition, []domain.LoadIssue) {
	doc, issue, ok := l.readSource(sourceCatalog, path)
	if !ok {
		return nil, issue
	}

	rawList, present := doc[keyToolsets]
	if !present {
		l.logger.Info("loaded toolsets", zap.String("path", path), zap.Int("count", 0))
		return nil, nil
	}
	entries, isList := rawList.([]any)
	if !isList {
		msg := fmt.Sprintf("%s must be an array, got %s", keyToolsets, typeName(rawList))
		l.logger.Error("failed to load toolsets", zap.String("path", path), zap.String("error", msg))
		return nil, []domain.LoadIssue{{Source: path, Kind: domain.IssueParseFailure, Index: -1, Message: msg}}
	}

	var issues []domain.LoadIssue
	toolsets := make([]domain.ToolsetDefinition, 0, len(entries))
	seen := make(map[string]int, len(entries))
	slots := make(map[string]int, len(entries))
	for i, entry := range entries {
		if err := validateToolsetEntry(entry); err != nil {
			id := entryID(entry)
			l.logger.Warn("skipping malformed toolset entry",
				zap.String("path", path),
				zap.Int("index", i),
				zap.String("id", id),
				zap.Error(err),
			)
			issues = append(issues, domain.LoadIssue{
				Source:  path,
				Kind:    domain.IssueMalformedEntry,
				Index:   i,
				ID:      id,
				Message: fmt.Sprintf("%s[%d]: %v", keyToolsets, i, err),
			})
			continue
		}

		def, coerced := normalizeToolset(entry.(map[string]any))
		for _, msg := range coerced {
			l.logger.Warn("coerced toolset field",
				zap.String("path", path),
				zap.Int("index", i),
				zap.String("id", def.ID),
				zap.String("detail", msg),
			)
			issues = append(issues, domain.LoadIssue{
				Source:  path,
				Kind:    domain.IssueCoercedField,
				Index:   i,
				ID:      def.ID,
				Message: fmt.Sprintf("%s[%d].%s", keyToolsets, i, msg),
			})
		}

		// A repeated id keeps the slot of its first entry and the content of its last.
		if first, exists := seen[def.ID]; exists {
			l.logger.Warn("duplicate toolset id replaces earlier entry",
				zap.String("path", path),
				zap.Int("index", i),
				zap.String("id", def.ID),
				zap.Int("firstIndex", first),
			)
			issues = append(issues, domain.LoadIssue{
				Source:  path,
				Kind:    domain.IssueDuplicateID,
				Index:   i,
				ID:      def.ID,
				Message: fmt.Sprintf("%s[%d]: duplicate id %q replaces the entry at index %d", keyToolsets, i, def.ID, first),
			})
			toolsets[slots[def.ID]] = def
			continue
		}
		seen[def.ID] = i
		slots[def.ID] = len(toolsets)
		toolsets = append(toolsets, def)
	}

	l.logger.Info("loaded toolsets", zap.String("path", path), zap.Int("count", len(toolsets)))
	return toolsets, issues
}

func (l *Loader) loadAliases(path string) (map[string]string, map[string]domain.DeprecationInfo, []domain.LoadIssue) {
	aliases := map[string]string{}
	deprecation := map[string]domain.DeprecationInfo{}

	doc, issue, ok := l.readSource(sourceAliases, path)
	if !ok {
		return aliases, deprecation, issue
	}

	var issues []domain.LoadIssue
	if raw, present := doc[keyAliases]; present {
		table, isMap := raw.(map[string]any)
		if !isMap {
			issues = append(issues, l.sectionIssue(path, keyAliases, raw))
		} else {
			for _, key := range sortedKeys(table) {
				target, isString := table[key].(string)
				if !isString {
					msg := fmt.Sprintf("%s.%s: canonical id must be a string, got %s", keyAliases, key, typeName(table[key]))
					l.logger.Warn("skipping malformed alias", zap.String("path", path), zap.String("alias", key), zap.String("error", msg))
					issues = append(issues, domain.LoadIssue{Source: path, Kind: domain.IssueMalformedEntry, Index: -1, ID: key, Message: msg})
					continue
				}
				aliases[key] = target
			}
		}
	}

	if raw, present := doc[keyDeprecation]; present {
		table, isMap := raw.(map[string]any)
		if !isMap {
			issues = append(issues, l.sectionIssue(path, keyDeprecation, raw))
		} else {
			for _, key := range sortedKeys(table) {
				if err := validateDeprecationEntry(table[key]); err != nil {
					msg := fmt.Sprintf("%s.%s: %v", keyDeprecation, key, err)
					l.logger.Warn("skipping malformed deprecation metadata", zap.String("path", path), zap.String("alias", key), zap.Error(err))
					issues = append(issues, domain.LoadIssue{Source: path, Kind: domain.IssueMalformedEntry, Index: -1, ID: key, Message: msg})
					continue
				}
				deprecation[key] = normalizeDeprecation(table[key].(map[string]any))
			}
		}
	}

	l.logger.Info("loaded deprecation aliases", zap.String("path", path), zap.Int("count", len(aliases)))
	return aliases, deprecation, issues
}

// checkAliasTargets records aliases whose canonical id is not in the catalog.
// Such aliases are kept so resolution still returns the canonical id.
func (l *Loader) checkAliasTargets(path string, cfg domain.ToolsetConfig) []domain.LoadIssue {
	if len(cfg.Aliases) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(cfg.Toolsets))
	for _, def := range cfg.Toolsets {
		known[def.ID] = struct{}{}
	}

	var issues []domain.LoadIssue
	for _, alias := range sortedKeys(cfg.Aliases) {
		target := cfg.Aliases[alias]
		if _, ok := known[target]; ok {
			continue
		}
		l.logger.Warn("alias points to unknown toolset", zap.String("alias", alias), zap.String("canonical", target))
		issues = append(issues, domain.LoadIssue{
			Source:  path,
			Kind:    domain.IssueDanglingAlias,
			Index:   -1,
			ID:      alias,
			Message: fmt.Sprintf("%s.%s: canonical id %q is not in the catalog", keyAliases, alias, target),
		})
	}
	return issues
}

func (l *Loader) readSource(kind, path string) (map[string]any, []domain.LoadIssue, bool) {
	doc, err := readDocument(path)
	if err == nil {
		return doc, nil, true
	}
	if errors.Is(err, errSourceMissing) {
		l.logger.Info("toolset source not found", zap.String("source", kind), zap.String("path", path))
		return nil, []domain.LoadIssue{{
			Source:  path,
			Kind:    domain.IssueSourceMissing,
			Index:   -1,
			Message: fmt.Sprintf("%s document not found", kind),
		}}, false
	}
	l.logger.Error("failed to load toolset source", zap.String("source", kind), zap.String("path", path), zap.Error(err))
	return nil, []domain.LoadIssue{{
		Source:  path,
		Kind:    domain.IssueParseFailure,
		Index:   -1,
		Message: err.Error(),
	}}, false
}

func (l *Loader) sectionIssue(path, section string, raw any) domain.LoadIssue {
	msg := fmt.Sprintf("%s must be an object, got %s", section, typeName(raw))
	l.logger.Error("failed to load alias section", zap.String("path", path), zap.String("section", section), zap.String("error", msg))
	return domain.LoadIssue{Source: path, Kind: domain.IssueParseFailure, Index: -1, Message: msg}
}

// normalizeToolset builds a definition from a validated entry. Fields of the
// wrong type are coerced and described in the returned messages.
func normalizeToolset(entry map[string]any) (domain.ToolsetDefinition, []string) {
	var coerced []string
	def := domain.ToolsetDefinition{
		ID:    entry["id"].(string),
		Tools: []string{},
	}

	for _, field := range []struct {
		key string
		dst *string
	}{
		{"name", &def.Name},
		{"description", &def.Description},
	} {
		raw, present := entry[field.key]
		if !present {
			continue
		}
		value, isString := raw.(string)
		if !isString {
			coerced = append(coerced, fmt.Sprintf("%s: expected string, got %s; using \"\"", field.key, typeName(raw)))
			continue
		}
		*field.dst = value
	}

	if raw, present := entry["tools"]; present {
		tools, isList := raw.([]any)
		if !isList {
			coerced = append(coerced, fmt.Sprintf("tools: expected array, got %s; using []", typeName(raw)))
		}
		dropped := 0
		for _, tool := range tools {
			name, isString := tool.(string)
			if !isString {
				dropped++
				continue
			}
			def.Tools = append(def.Tools, name)
		}
		if dropped > 0 {
			coerced = append(coerced, fmt.Sprintf("tools: dropped %d non-string item(s)", dropped))
		}
	}

	if raw, present := entry["metadata"]; present && raw != nil {
		meta, isMap := raw.(map[string]any)
		if !isMap {
			coerced = append(coerced, fmt.Sprintf("metadata: expected object, got %s; ignored", typeName(raw)))
		}
		for key, value := range meta {
			if key == "deprecated" {
				flag, isBool := value.(bool)
				if !isBool {
					flag = truthy(value)
					coerced = append(coerced, fmt.Sprintf("metadata.deprecated: expected boolean, got %s; read as %t", typeName(value), flag))
				}
				def.Metadata.Deprecated = flag
				continue
			}
			if def.Metadata.Extra == nil {
				def.Metadata.Extra = make(map[string]any)
			}
			def.Metadata.Extra[key] = value
		}
	}

	sort.Strings(coerced)
	return def, coerced
}

// truthy reads a non-boolean flag the way a loosely typed config author
// means it: empty and zero values are false.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func normalizeDeprecation(entry map[string]any) domain.DeprecationInfo {
	return domain.DeprecationInfo{
		Reason:         stringField(entry, "reason"),
		RemovalDate:    stringField(entry, "removal_date"),
		MigrationGuide: stringField(entry, "migration_guide"),
	}
}

func stringField(entry map[string]any, key string) string {
	value, _ := entry[key].(string)
	return value
}

func entryID(entry any) string {
	m, ok := entry.(map[string]any)
	if !ok {
		return ""
	}
	id, _ := m["id"].(string)
	return id
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
