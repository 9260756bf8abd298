package toolset

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"genui/internal/domain"
)

func newTestManager(t *testing.T, cfg domain.ToolsetConfig) (*Manager, *bytes.Buffer) {
	t.Helper()
	var notices bytes.Buffer
	return NewManager(cfg, ManagerOptions{Logger: zap.NewNop(), Notices: &notices}), &notices
}

func sampleConfig() domain.ToolsetConfig {
	return domain.ToolsetConfig{
		Toolsets: []domain.ToolsetDefinition{
			{ID: "repos", Name: "Repositories", Tools: []string{"list_repos", "get_repo"}},
			{ID: "legacy_charts", Name: "Legacy Charts", Tools: []string{"draw_chart"}, Metadata: domain.ToolsetMetadata{
				Deprecated: true,
				Extra:      map[string]any{"reason": "superseded by ui_elements"},
			}},
			{ID: "ui_elements", Name: "UI Elements", Tools: []string{"upsert_ui_element", "remove_ui_element", "clear_canvas"}},
			{ID: "old_ui", Name: "Old UI", Tools: []string{"clear_canvas"}},
		},
		Aliases: map[string]string{
			"get_repos": "repos",
			"old_ui":    "ui_elements",
			"ghost":     "nowhere",
		},
		Deprecation: map[string]domain.DeprecationInfo{
			"get_repos": {Reason: "renamed", RemovalDate: "2025-01-01", MigrationGuide: "https://example.com/migrate"},
		},
	}
}

func noticeCount(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "is deprecated. Use")
}

func TestManager_ResolveUnknownEmitsNothing(t *testing.T) {
	mgr, notices := newTestManager(t, sampleConfig())

	for _, id := range []string{"missing", "", "REPOS", "repos "} {
		canonical, ok := mgr.Resolve(id)
		assert.False(t, ok, id)
		assert.Empty(t, canonical, id)
	}
	assert.Zero(t, noticeCount(notices))
}

func TestManager_ResolveAliasEmitsOneNoticePerCall(t *testing.T) {
	mgr, notices := newTestManager(t, sampleConfig())

	for i := 1; i <= 3; i++ {
		canonical, ok := mgr.Resolve("get_repos")
		require.True(t, ok)
		require.Equal(t, "repos", canonical)
		require.Equal(t, i, noticeCount(notices))
	}
}

func TestManager_AliasTakesPrecedenceOverCatalog(t *testing.T) {
	mgr, notices := newTestManager(t, sampleConfig())

	canonical, ok := mgr.Resolve("old_ui")
	require.True(t, ok)
	require.Equal(t, "ui_elements", canonical)
	require.Equal(t, 1, noticeCount(notices))

	def, ok := mgr.GetToolset("old_ui")
	require.True(t, ok)
	require.Equal(t, "ui_elements", def.ID)
	require.True(t, mgr.IsDeprecated("old_ui"))

	status, ok := mgr.Status("old_ui")
	require.True(t, ok)
	require.Equal(t, domain.ToolsetDeprecatedViaAlias, status.Kind)
	require.Equal(t, "ui_elements", status.Canonical)
}

func TestManager_DanglingAliasResolvesButHasNoToolset(t *testing.T) {
	mgr, notices := newTestManager(t, sampleConfig())

	canonical, ok := mgr.Resolve("ghost")
	require.True(t, ok)
	require.Equal(t, "nowhere", canonical)

	_, found := mgr.GetToolset("ghost")
	require.False(t, found)
	require.Equal(t, []string{}, mgr.GetToolsetTools("ghost"))
	require.Equal(t, 3, noticeCount(notices))
}

func TestManager_ListToolsetsFiltersByCatalogFlagOnly(t *testing.T) {
	mgr, _ := newTestManager(t, sampleConfig())

	ids := func(defs []domain.ToolsetDefinition) []string {
		out := make([]string, 0, len(defs))
		for _, def := range defs {
			out = append(out, def.ID)
		}
		return out
	}

	// old_ui is an alias key but not flagged, so it stays in the list.
	require.Equal(t, []string{"repos", "ui_elements", "old_ui"}, ids(mgr.ListToolsets(false)))
	require.Equal(t, []string{"repos", "legacy_charts", "ui_elements", "old_ui"}, ids(mgr.ListToolsets(true)))
}

func TestManager_ListToolsetsIsIdempotent(t *testing.T) {
	mgr, _ := newTestManager(t, sampleConfig())

	first := mgr.ListToolsets(true)
	first[0].Tools[0] = "mutated"
	second := mgr.ListToolsets(true)
	third := mgr.ListToolsets(true)

	require.Equal(t, "list_repos", second[0].Tools[0])
	if diff := cmp.Diff(second, third); diff != "" {
		t.Fatalf("list mismatch (-second +third):\n%s", diff)
	}
}

func TestManager_GetToolsetTools(t *testing.T) {
	mgr, _ := newTestManager(t, sampleConfig())

	require.Equal(t, []string{"upsert_ui_element", "remove_ui_element", "clear_canvas"}, mgr.GetToolsetTools("ui_elements"))
	require.Equal(t, []string{"list_repos", "get_repo"}, mgr.GetToolsetTools("get_repos"))
	require.NotNil(t, mgr.GetToolsetTools("missing"))
	require.Empty(t, mgr.GetToolsetTools("missing"))
}

func TestManager_DeprecationQueriesDoNotResolve(t *testing.T) {
	mgr, notices := newTestManager(t, sampleConfig())

	require.True(t, mgr.IsDeprecated("get_repos"))
	require.False(t, mgr.IsDeprecated("repos"))
	// Flagged in the catalog, but not an alias key.
	require.False(t, mgr.IsDeprecated("legacy_charts"))

	info, ok := mgr.DeprecationInfo("get_repos")
	require.True(t, ok)
	require.Equal(t, "renamed", info.Reason)

	_, ok = mgr.DeprecationInfo("repos")
	require.False(t, ok)
	_, ok = mgr.DeprecationInfo("legacy_charts")
	require.False(t, ok)
	// Alias without metadata.
	_, ok = mgr.DeprecationInfo("old_ui")
	require.False(t, ok)

	require.Zero(t, noticeCount(notices))
}

func TestManager_Statuses(t *testing.T) {
	mgr, _ := newTestManager(t, sampleConfig())

	want := []domain.ToolsetStatus{
		{ID: "get_repos", Kind: domain.ToolsetDeprecatedViaAlias, Canonical: "repos", Info: &domain.DeprecationInfo{
			Reason: "renamed", RemovalDate: "2025-01-01", MigrationGuide: "https://example.com/migrate",
		}},
		{ID: "ghost", Kind: domain.ToolsetDeprecatedViaAlias, Canonical: "nowhere", Info: &domain.DeprecationInfo{
			Reason: domain.DefaultDeprecationReason, RemovalDate: domain.DefaultRemovalDate,
		}},
		{ID: "legacy_charts", Kind: domain.ToolsetDeprecatedFlag, Info: &domain.DeprecationInfo{
			Reason: "superseded by ui_elements", RemovalDate: domain.DefaultRemovalDate,
		}},
		{ID: "old_ui", Kind: domain.ToolsetDeprecatedViaAlias, Canonical: "ui_elements", Info: &domain.DeprecationInfo{
			Reason: domain.DefaultDeprecationReason, RemovalDate: domain.DefaultRemovalDate,
		}},
		{ID: "repos", Kind: domain.ToolsetActive},
		{ID: "ui_elements", Kind: domain.ToolsetActive},
	}
	if diff := cmp.Diff(want, mgr.Statuses()); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}

	_, ok := mgr.Status("missing")
	require.False(t, ok)
}

func TestManager_AliasesSorted(t *testing.T) {
	mgr, _ := newTestManager(t, sampleConfig())

	want := []domain.AliasPair{
		{Deprecated: "get_repos", Canonical: "repos"},
		{Deprecated: "ghost", Canonical: "nowhere"},
		{Deprecated: "old_ui", Canonical: "ui_elements"},
	}
	require.Equal(t, want, mgr.Aliases())
}

func TestManager_DuplicateIDsLastDefinitionWins(t *testing.T) {
	mgr, _ := newTestManager(t, domain.ToolsetConfig{Toolsets: []domain.ToolsetDefinition{
		{ID: "a", Tools: []string{"first"}},
		{ID: "b", Tools: []string{"other"}},
		{ID: "a", Tools: []string{"second"}},
	}})

	require.Equal(t, 2, mgr.Count())
	require.Equal(t, []string{"a", "b"}, mgr.IDs())
	require.Equal(t, []string{"second"}, mgr.GetToolsetTools("a"))
}

func TestManager_EmptyConfig(t *testing.T) {
	mgr, notices := newTestManager(t, domain.ToolsetConfig{})

	require.Zero(t, mgr.Count())
	require.Empty(t, mgr.ListToolsets(true))
	require.Empty(t, mgr.Aliases())
	_, ok := mgr.Resolve("anything")
	require.False(t, ok)
	require.Zero(t, noticeCount(notices))
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "toolsets.json", `{"toolsets": [{"id": "repos", "tools": ["list_repos"], "metadata": {}}]}`)
	aliases := writeFile(t, dir, "toolset_aliases.json", `{
  "aliases": {"get_repos": "repos"},
  "deprecation_metadata": {"get_repos": {"reason": "renamed", "removal_date": "2025-01-01"}}
}`)

	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), domain.ToolsetSources{CatalogPath: catalog, AliasesPath: aliases})
	require.NoError(t, err)
	require.Empty(t, cfg.Issues)
	mgr, notices := newTestManager(t, cfg)

	canonical, ok := mgr.Resolve("get_repos")
	require.True(t, ok)
	require.Equal(t, "repos", canonical)
	require.Equal(t, 1, noticeCount(notices))
	require.Contains(t, notices.String(), "renamed")
	require.Contains(t, notices.String(), "2025-01-01")

	notices.Reset()
	canonical, ok = mgr.Resolve("repos")
	require.True(t, ok)
	require.Equal(t, "repos", canonical)
	require.Zero(t, notices.Len())

	canonical, ok = mgr.Resolve("missing")
	require.False(t, ok)
	require.Empty(t, canonical)
	require.Zero(t, notices.Len())

	require.Equal(t, []string{"list_repos"}, mgr.GetToolsetTools("get_repos"))
}

type recordingMetrics struct {
	domain.NoopMetrics
	outcomes []domain.ResolveOutcome
	notices  []string
	loaded   int
}

func (r *recordingMetrics) ObserveToolsetResolution(outcome domain.ResolveOutcome) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) ObserveDeprecationNotice(id string) {
	r.notices = append(r.notices, id)
}

func (r *recordingMetrics) SetToolsetsLoaded(count int) {
	r.loaded = count
}

func TestManager_RecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	mgr := NewManager(sampleConfig(), ManagerOptions{Notices: &bytes.Buffer{}, Metrics: metrics})

	mgr.Resolve("repos")
	mgr.Resolve("get_repos")
	mgr.Resolve("missing")

	require.Equal(t, 4, metrics.loaded)
	require.Equal(t, []domain.ResolveOutcome{domain.ResolveDirect, domain.ResolveAlias, domain.ResolveNotFound}, metrics.outcomes)
	require.Equal(t, []string{"get_repos"}, metrics.notices)
}
