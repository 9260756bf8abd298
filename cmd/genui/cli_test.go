package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genui/internal/app"
	"genui/internal/domain"
)

const cliCatalog = `{
  "toolsets": [
    {"id": "repos", "name": "Repositories", "tools": ["list_repos", "get_repo"]},
    {"id": "issues", "name": "Issues", "tools": ["list_issues"]},
    {"id": "legacy", "name": "Legacy", "tools": [], "metadata": {"deprecated": true, "reason": "Superseded"}}
  ]
}`

const cliAliases = `{
  "aliases": {"get_repos": "repos"},
  "deprecation_metadata": {"get_repos": {"reason": "Renamed", "removal_date": "2026-06-01"}}
}`

func writeCLIConfig(t *testing.T, catalog, aliases, extra string) string {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "toolsets.json")
	aliasesPath := filepath.Join(dir, "toolset_aliases.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalog), 0o600))
	require.NoError(t, os.WriteFile(aliasesPath, []byte(aliases), 0o600))

	config := "toolsets:\n" +
		"  catalogPath: " + catalogPath + "\n" +
		"  aliasesPath: " + aliasesPath + "\n" +
		"log:\n  level: error\n" + extra
	path := filepath.Join(dir, "genui.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestToolsetsList(t *testing.T) {
	config := writeCLIConfig(t, cliCatalog, cliAliases, "")

	out, _, err := runCLI(t, "--config", config, "toolsets", "list")
	require.NoError(t, err)
	assert.Equal(t, "repos\tRepositories\t2 tools\nissues\tIssues\t1 tools\n", out)

	out, _, err = runCLI(t, "--config", config, "--json", "toolsets", "list", "--include-deprecated")
	require.NoError(t, err)
	var payload struct {
		Toolsets []domain.ToolsetDefinition `json:"toolsets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Len(t, payload.Toolsets, 3)
	assert.Equal(t, "legacy", payload.Toolsets[2].ID)
	assert.True(t, payload.Toolsets[2].Metadata.Deprecated)
}

func TestToolsetsShowResolvesAlias(t *testing.T) {
	config := writeCLIConfig(t, cliCatalog, cliAliases, "")

	out, stderr, err := runCLI(t, "--config", config, "toolsets", "show", "get_repos")
	require.NoError(t, err)
	assert.Contains(t, out, "id: repos\n")
	assert.Contains(t, out, "  - get_repo\n")
	assert.Contains(t, stderr, "Toolset 'get_repos' is deprecated. Use 'repos' instead.")

	_, _, err = runCLI(t, "--config", config, "toolsets", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toolset not found: missing")
}

func TestToolsetsResolveAndStatus(t *testing.T) {
	config := writeCLIConfig(t, cliCatalog, cliAliases, "")

	out, _, err := runCLI(t, "--config", config, "toolsets", "resolve", "get_repos", "issues", "nope")
	require.NoError(t, err)
	assert.Equal(t, "get_repos -> repos\nissues -> issues\nnope: not found\n", out)

	out, _, err = runCLI(t, "--config", config, "--json", "toolsets", "status", "get_repos")
	require.NoError(t, err)
	var status domain.ToolsetStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, domain.ToolsetDeprecatedViaAlias, status.Kind)
	assert.Equal(t, "repos", status.Canonical)
	require.NotNil(t, status.Info)
	assert.Equal(t, "Renamed", status.Info.Reason)

	out, _, err = runCLI(t, "--config", config, "toolsets", "aliases")
	require.NoError(t, err)
	assert.Equal(t, "get_repos -> repos\n", out)
}

func TestValidateReportsIssues(t *testing.T) {
	config := writeCLIConfig(t, cliCatalog, cliAliases, "")
	out, _, err := runCLI(t, "--config", config, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "toolsets=3 alias_entries=1 issues=0")

	broken := writeCLIConfig(t, cliCatalog, `{"aliases": {"old": "gone"}}`, "")
	out, _, err = runCLI(t, "--config", broken, "validate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, app.ErrValidationIssues))
	assert.Contains(t, out, "issues=1")
}

func TestMemoryCommands(t *testing.T) {
	disabled := writeCLIConfig(t, cliCatalog, cliAliases, "")
	_, _, err := runCLI(t, "--config", disabled, "memory", "summary")
	require.ErrorIs(t, err, domain.ErrMemoryDisabled)

	persistDir := t.TempDir()
	enabled := writeCLIConfig(t, cliCatalog, cliAliases,
		"memory:\n  enabled: true\n  backend: persistent\n  sessionId: cli00001\n  persistDir: "+persistDir+"\n")

	out, _, err := runCLI(t, "--config", enabled, "--json", "memory", "summary")
	require.NoError(t, err)
	var summary domain.SessionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "cli00001", summary.SessionID)
	assert.Equal(t, domain.MemoryBackendPersistent, summary.Mode)

	out, _, err = runCLI(t, "--config", enabled, "memory", "search", "charts", "--collection", "observations")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, _, err = runCLI(t, "--config", enabled, "memory", "search", "charts", "--collection", "bogus")
	require.ErrorIs(t, err, domain.ErrUnknownCollection)

	out, _, err = runCLI(t, "--config", enabled, "memory", "clear")
	require.NoError(t, err)
	assert.Equal(t, "cleared session cli00001\n", out)
}
