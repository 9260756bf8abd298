package toolset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"genui/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func issueKinds(issues []domain.LoadIssue) []domain.LoadIssueKind {
	out := make([]domain.LoadIssueKind, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Kind)
	}
	return out
}

func TestLoader_JSON(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{
  "toolsets": [
    {
      "id": "ui_elements",
      "name": "UI Elements",
      "description": "Canvas mutation tools",
      "tools": ["upsert_ui_element", "remove_ui_element", "clear_canvas"],
      "metadata": {"deprecated": false, "owner": "workbench", "priority": 2}
    },
    {
      "id": "theme",
      "name": "Theme",
      "tools": ["setThemeColor"]
    }
  ]
}`)
	aliases := writeFile(t, dir, "toolset_aliases.json", `{
  "aliases": {"canvas": "ui_elements"},
  "deprecation_metadata": {
    "canvas": {"reason": "split into ui_elements", "removal_date": "2026-06-30", "migration_guide": "docs/migrate.md"}
  }
}`)

	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog, AliasesPath: aliases})
	require.NoError(t, err)
	require.Empty(t, cfg.Issues)

	want := []domain.ToolsetDefinition{
		{
			ID:          "ui_elements",
			Name:        "UI Elements",
			Description: "Canvas mutation tools",
			Tools:       []string{"upsert_ui_element", "remove_ui_element", "clear_canvas"},
			Metadata: domain.ToolsetMetadata{
				Extra: map[string]any{"owner": "workbench", "priority": float64(2)},
			},
		},
		{ID: "theme", Name: "Theme", Tools: []string{"setThemeColor"}},
	}
	if diff := cmp.Diff(want, cfg.Toolsets); diff != "" {
		t.Fatalf("toolsets mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, map[string]string{"canvas": "ui_elements"}, cfg.Aliases)
	require.Equal(t, domain.DeprecationInfo{
		Reason:         "split into ui_elements",
		RemovalDate:    "2026-06-30",
		MigrationGuide: "docs/migrate.md",
	}, cfg.Deprecation["canvas"])
}

func TestLoader_YAML(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.yaml", `
toolsets:
  - id: repos
    name: Repositories
    tools: [list_repos]
    metadata:
      deprecated: true
      removal_date: 2025-03-01
`)
	aliases := writeFile(t, dir, "aliases.yml", `
aliases:
  get_repos: repos
deprecation_metadata:
  get_repos:
    reason: renamed
    removal_date: 2025-01-01
`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog, AliasesPath: aliases})
	require.NoError(t, err)
	require.Empty(t, cfg.Issues)
	require.Len(t, cfg.Toolsets, 1)
	require.True(t, cfg.Toolsets[0].Metadata.Deprecated)
	require.Equal(t, "2025-03-01", cfg.Toolsets[0].Metadata.Extra["removal_date"])
	require.Equal(t, "2025-01-01", cfg.Deprecation["get_repos"].RemovalDate)
}

func TestLoader_TOML(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.toml", `
[[toolsets]]
id = "repos"
name = "Repositories"
tools = ["list_repos", "get_repo"]

[[toolsets]]
id = "issues"
tools = []
`)
	aliases := writeFile(t, dir, "aliases.toml", `
[aliases]
get_repos = "repos"

[deprecation_metadata.get_repos]
reason = "renamed"
removal_date = 2025-01-01
`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog, AliasesPath: aliases})
	require.NoError(t, err)
	require.Empty(t, cfg.Issues)
	require.Equal(t, []string{"list_repos", "get_repo"}, cfg.Toolsets[0].Tools)
	require.Equal(t, []string{}, cfg.Toolsets[1].Tools)
	require.Equal(t, "2025-01-01", cfg.Deprecation["get_repos"].RemovalDate)
}

func TestLoader_MissingSources(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{
		CatalogPath: filepath.Join(dir, "absent.json"),
		AliasesPath: "",
	})
	require.NoError(t, err)
	require.Empty(t, cfg.Toolsets)
	require.Empty(t, cfg.Aliases)
	require.Equal(t, []domain.LoadIssueKind{domain.IssueSourceMissing, domain.IssueSourceMissing}, issueKinds(cfg.Issues))
}

func TestLoader_ParseFailureTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{"toolsets": [`)
	aliases := writeFile(t, dir, "aliases.json", `{"aliases": {"a": "b"}}`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog, AliasesPath: aliases})
	require.NoError(t, err)
	require.Empty(t, cfg.Toolsets)
	require.Equal(t, map[string]string{"a": "b"}, cfg.Aliases)
	require.Equal(t, []domain.LoadIssueKind{domain.IssueParseFailure, domain.IssueDanglingAlias}, issueKinds(cfg.Issues))
}

func TestLoader_RootMustBeObject(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `[{"id": "a"}]`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog})
	require.NoError(t, err)
	require.Empty(t, cfg.Toolsets)
	require.Equal(t, domain.IssueParseFailure, cfg.Issues[0].Kind)
	require.Contains(t, cfg.Issues[0].Message, "must be an object")
}

func TestLoader_MalformedEntriesSkipped(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{
  "toolsets": [
    {"id": "first", "tools": ["a"]},
    {"name": "no id"},
    {"id": "", "tools": []},
    {"id": "bad_tools", "tools": "a,b"},
    {"id": "bad_flag", "metadata": {"deprecated": "yes"}},
    "not an object",
    {"id": "first", "tools": ["dup"]},
    {"id": "last", "tools": ["z"]}
  ]
}`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog})
	require.NoError(t, err)

	ids := make([]string, 0, len(cfg.Toolsets))
	for _, def := range cfg.Toolsets {
		ids = append(ids, def.ID)
	}
	require.Equal(t, []string{"first", "bad_tools", "bad_flag", "last"}, ids)
	require.Equal(t, []string{"dup"}, cfg.Toolsets[0].Tools)
	require.Equal(t, []string{}, cfg.Toolsets[1].Tools)
	require.True(t, cfg.Toolsets[2].Metadata.Deprecated)

	var indexes []int
	for _, issue := range cfg.Issues {
		if issue.Kind == domain.IssueSourceMissing {
			continue
		}
		indexes = append(indexes, issue.Index)
	}
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, indexes)
	require.Equal(t, []domain.LoadIssueKind{
		domain.IssueMalformedEntry,
		domain.IssueMalformedEntry,
		domain.IssueCoercedField,
		domain.IssueCoercedField,
		domain.IssueMalformedEntry,
		domain.IssueDuplicateID,
		domain.IssueSourceMissing,
	}, issueKinds(cfg.Issues))
	require.Equal(t, "bad_tools", cfg.Issues[2].ID)
}

func TestLoader_LooselyTypedFieldsAreCoerced(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{
  "toolsets": [
    {"id": "a", "name": null, "tools": ["x", 7, "y"]},
    {"id": "b", "metadata": {"deprecated": "yes", "reason": "old"}},
    {"id": "c", "metadata": {"deprecated": 1}},
    {"id": "d", "metadata": {"deprecated": 0}},
    {"id": "e", "metadata": "flagged"}
  ]
}`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog})
	require.NoError(t, err)

	want := []domain.ToolsetDefinition{
		{ID: "a", Tools: []string{"x", "y"}},
		{ID: "b", Tools: []string{}, Metadata: domain.ToolsetMetadata{Deprecated: true, Extra: map[string]any{"reason": "old"}}},
		{ID: "c", Tools: []string{}, Metadata: domain.ToolsetMetadata{Deprecated: true}},
		{ID: "d", Tools: []string{}},
		{ID: "e", Tools: []string{}},
	}
	if diff := cmp.Diff(want, cfg.Toolsets); diff != "" {
		t.Fatalf("toolsets mismatch (-want +got):\n%s", diff)
	}

	var coerced []string
	for _, issue := range cfg.Issues {
		if issue.Kind == domain.IssueCoercedField {
			coerced = append(coerced, issue.ID)
		}
	}
	require.Equal(t, []string{"a", "a", "b", "c", "d", "e"}, coerced)
	require.Contains(t, cfg.Issues[0].Message, "toolsets[0].name: expected string, got null")

	mgr := NewManager(cfg, ManagerOptions{Notices: io.Discard})
	require.Equal(t, []string{"x", "y"}, mgr.GetToolsetTools("a"))
	listed := make([]string, 0, 2)
	for _, def := range mgr.ListToolsets(false) {
		listed = append(listed, def.ID)
	}
	require.Equal(t, []string{"a", "d", "e"}, listed)
}

func TestLoader_DuplicateIDKeepsLastDefinition(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{
  "toolsets": [
    {"id": "a", "tools": ["x"]},
    {"id": "b", "tools": ["b1"]},
    {"id": "a", "tools": ["y"]}
  ]
}`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog})
	require.NoError(t, err)
	require.Len(t, cfg.Toolsets, 2)
	require.Equal(t, "a", cfg.Toolsets[0].ID)
	require.Equal(t, []string{"y"}, cfg.Toolsets[0].Tools)
	require.Equal(t, domain.IssueDuplicateID, cfg.Issues[0].Kind)
	require.Equal(t, 2, cfg.Issues[0].Index)
}

func TestLoader_AliasSectionsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{"toolsets": [{"id": "repos", "tools": []}]}`)
	aliases := writeFile(t, dir, "aliases.json", `{
  "aliases": {"get_repos": "repos", "broken": 42},
  "deprecation_metadata": ["not", "a", "map"]
}`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog, AliasesPath: aliases})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"get_repos": "repos"}, cfg.Aliases)
	require.Empty(t, cfg.Deprecation)
	require.Equal(t, []domain.LoadIssueKind{domain.IssueMalformedEntry, domain.IssueParseFailure}, issueKinds(cfg.Issues))
}

func TestLoader_MalformedDeprecationEntry(t *testing.T) {
	dir := t.TempDir()
	aliases := writeFile(t, dir, "aliases.json", `{
  "aliases": {},
  "deprecation_metadata": {"a": {"reason": 5}, "b": {"reason": "ok"}}
}`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{AliasesPath: aliases})
	require.NoError(t, err)
	require.Equal(t, map[string]domain.DeprecationInfo{"b": {Reason: "ok"}}, cfg.Deprecation)
	require.Equal(t, "a", cfg.Issues[1].ID)
	require.Equal(t, domain.IssueMalformedEntry, cfg.Issues[1].Kind)
}

func TestLoader_DanglingAliasKept(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{"toolsets": [{"id": "repos"}]}`)
	aliases := writeFile(t, dir, "aliases.json", `{"aliases": {"get_repos": "repos", "old": "gone"}}`)

	cfg, err := NewLoader(nil).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog, AliasesPath: aliases})
	require.NoError(t, err)
	require.Equal(t, "gone", cfg.Aliases["old"])
	require.Len(t, cfg.Issues, 1)
	require.Equal(t, domain.IssueDanglingAlias, cfg.Issues[0].Kind)
	require.Equal(t, "old", cfg.Issues[0].ID)
}

func TestLoader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(nil).Load(ctx, domain.ToolsetSources{})
	require.ErrorIs(t, err, context.Canceled)
}
