package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"genui/internal/app"
	"genui/internal/domain"
)

func writeJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printToolsets(w io.Writer, toolsets []domain.ToolsetDefinition, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, map[string]any{"toolsets": toolsets})
	}
	for _, def := range toolsets {
		marker := ""
		if def.Metadata.Deprecated {
			marker = " (deprecated)"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%d tools\n", def.ID, marker, def.Name, len(def.Tools))
	}
	return nil
}

func printToolset(w io.Writer, def domain.ToolsetDefinition, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, def)
	}
	fmt.Fprintf(w, "id: %s\nname: %s\ndescription: %s\ndeprecated: %t\ntools:\n", def.ID, def.Name, def.Description, def.Metadata.Deprecated)
	for _, tool := range def.Tools {
		fmt.Fprintf(w, "  - %s\n", tool)
	}
	return nil
}

func printStatus(w io.Writer, status domain.ToolsetStatus, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "%s: %s", status.ID, status.Kind)
	if status.Canonical != "" {
		fmt.Fprintf(w, " -> %s", status.Canonical)
	}
	fmt.Fprintln(w)
	if status.Info != nil {
		fmt.Fprintf(w, "  reason: %s\n  removal: %s\n", status.Info.Reason, status.Info.RemovalDate)
		if status.Info.MigrationGuide != "" {
			fmt.Fprintf(w, "  migration guide: %s\n", status.Info.MigrationGuide)
		}
	}
	return nil
}

func printAliases(w io.Writer, aliases []domain.AliasPair, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, map[string]any{"aliases": aliases})
	}
	for _, pair := range aliases {
		fmt.Fprintf(w, "%s -> %s\n", pair.Deprecated, pair.Canonical)
	}
	return nil
}

func printValidationReport(w io.Writer, report app.ValidationReport, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "catalog=%s aliases=%s toolsets=%d alias_entries=%d issues=%d\n",
		report.CatalogPath, report.AliasesPath, report.Toolsets, report.Aliases, len(report.Issues))
	for _, issue := range report.Issues {
		location := issue.Source
		if issue.Index >= 0 {
			location = fmt.Sprintf("%s[%d]", location, issue.Index)
		}
		fmt.Fprintf(w, "  %s %s: %s\n", issue.Kind, location, issue.Message)
	}
	return nil
}

func printSummary(w io.Writer, summary domain.SessionSummary, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, summary)
	}
	fmt.Fprintf(w, "session=%s mode=%s created=%s\n", summary.SessionID, summary.Mode, summary.CreatedAt)
	for _, collection := range domain.OrderedMemoryCollections {
		fmt.Fprintf(w, "  %s: %d\n", collection, summary.Collections[string(collection)])
	}
	if len(summary.CurrentState) > 0 {
		state, err := json.Marshal(summary.CurrentState)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "state: %s\n", state)
	}
	return nil
}

func printMatches(w io.Writer, matches []domain.MemoryMatch, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, map[string]any{"results": matches})
	}
	for _, match := range matches {
		distance := "-"
		if match.Distance != nil {
			distance = fmt.Sprintf("%.4f", *match.Distance)
		}
		fmt.Fprintf(w, "[%s] %s\n", distance, strings.TrimSpace(match.Document))
	}
	return nil
}
