package domain

// ToolsetDefinition describes a named group of tools exposed to an LLM client.
type ToolsetDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tools       []string        `json:"tools"`
	Metadata    ToolsetMetadata `json:"metadata"`
}

// ToolsetMetadata carries the catalog's own deprecation flag plus any
// additional keys the catalog author attached to the entry.
type ToolsetMetadata struct {
	Deprecated bool           `json:"deprecated"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Clone returns a deep copy that callers may mutate freely.
func (d ToolsetDefinition) Clone() ToolsetDefinition {
	out := d
	if d.Tools != nil {
		out.Tools = make([]string, len(d.Tools))
		copy(out.Tools, d.Tools)
	}
	if d.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]any, len(d.Metadata.Extra))
		for k, v := range d.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	return out
}

const (
	DefaultDeprecationReason  = "Toolset deprecated"
	DefaultRemovalDate        = "unknown"
	metadataKeyReason         = "reason"
	metadataKeyRemovalDate    = "removal_date"
	metadataKeyMigrationGuide = "migration_guide"
)

// DeprecationInfo is the metadata attached to a deprecated toolset id.
type DeprecationInfo struct {
	Reason         string `json:"reason,omitempty"`
	RemovalDate    string `json:"removal_date,omitempty"`
	MigrationGuide string `json:"migration_guide,omitempty"`
}

// WithDefaults fills the reason and removal date used in notices.
func (i DeprecationInfo) WithDefaults() DeprecationInfo {
	if i.Reason == "" {
		i.Reason = DefaultDeprecationReason
	}
	if i.RemovalDate == "" {
		i.RemovalDate = DefaultRemovalDate
	}
	return i
}

// DeprecationInfoFromMetadata reads deprecation fields from catalog entry metadata.
func DeprecationInfoFromMetadata(meta ToolsetMetadata) DeprecationInfo {
	var info DeprecationInfo
	if meta.Extra == nil {
		return info
	}
	if v, ok := meta.Extra[metadataKeyReason].(string); ok {
		info.Reason = v
	}
	if v, ok := meta.Extra[metadataKeyRemovalDate].(string); ok {
		info.RemovalDate = v
	}
	if v, ok := meta.Extra[metadataKeyMigrationGuide].(string); ok {
		info.MigrationGuide = v
	}
	return info
}

// ToolsetStatusKind tags the single authoritative deprecation state of an id.
type ToolsetStatusKind string

const (
	ToolsetActive             ToolsetStatusKind = "active"
	ToolsetDeprecatedViaAlias ToolsetStatusKind = "deprecated_alias"
	ToolsetDeprecatedFlag     ToolsetStatusKind = "deprecated_flag"
)

// ToolsetStatus is resolved once at load time for every catalog id and alias id.
// Canonical is set only for DeprecatedViaAlias; Info is nil for Active.
type ToolsetStatus struct {
	ID        string            `json:"id"`
	Kind      ToolsetStatusKind `json:"kind"`
	Canonical string            `json:"canonical,omitempty"`
	Info      *DeprecationInfo  `json:"info,omitempty"`
}

// Deprecated reports whether either deprecation mechanism applies.
func (s ToolsetStatus) Deprecated() bool {
	return s.Kind == ToolsetDeprecatedViaAlias || s.Kind == ToolsetDeprecatedFlag
}

// AliasPair is one deprecated -> canonical mapping.
type AliasPair struct {
	Deprecated string `json:"deprecated"`
	Canonical  string `json:"canonical"`
}

// ToolsetSources locates the two toolset configuration documents.
type ToolsetSources struct {
	CatalogPath string
	AliasesPath string
}

// LoadIssueKind classifies a non-fatal problem found while loading toolsets.
type LoadIssueKind string

const (
	IssueSourceMissing  LoadIssueKind = "source_missing"
	IssueParseFailure   LoadIssueKind = "parse_failure"
	IssueMalformedEntry LoadIssueKind = "malformed_entry"
	IssueDuplicateID    LoadIssueKind = "duplicate_id"
	IssueCoercedField   LoadIssueKind = "coerced_field"
	IssueDanglingAlias  LoadIssueKind = "dangling_alias"
)

// LoadIssue records one skipped or suspicious piece of configuration.
// Index is -1 when the issue is not tied to a list position.
type LoadIssue struct {
	Source  string        `json:"source"`
	Kind    LoadIssueKind `json:"kind"`
	Index   int           `json:"index"`
	ID      string        `json:"id,omitempty"`
	Message string        `json:"message"`
}

// ToolsetConfig is the loaded, validated content of both documents.
type ToolsetConfig struct {
	Toolsets    []ToolsetDefinition
	Aliases     map[string]string
	Deprecation map[string]DeprecationInfo
	Issues      []LoadIssue
}
