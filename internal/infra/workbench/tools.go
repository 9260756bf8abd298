package workbench

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"genui/internal/domain"
	"genui/internal/infra/canvas"
)

const (
	stateKeyElements   = "elements"
	stateKeyThemeColor = "theme_color"
)

type toolSpec struct {
	name        string
	description string
	schema      *jsonschema.Schema
	// stateKey names the session state a successful call changes, if any.
	stateKey string
	run      func(store *canvas.Store, sessionID string, args map[string]any) domain.ToolOutcome
}

func canvasTools() []toolSpec {
	return []toolSpec{
		{
			name:        domain.ToolUpsertUIElement,
			description: "Add or update a UI element in the workbench canvas. An element with the same id is replaced in place.",
			schema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id":    {Type: "string", Description: "Unique identifier for the element (snake_case recommended)"},
					"type":  {Type: "string", Description: "Component type (PascalCase, must match registry)", Enum: elementTypeEnum()},
					"props": {Type: "object", Description: "JSON-serializable properties (camelCase keys)"},
				},
				Required: []string{"id", "type", "props"},
			},
			stateKey: stateKeyElements,
			run: func(store *canvas.Store, sessionID string, args map[string]any) domain.ToolOutcome {
				id, _ := args["id"].(string)
				elementType, _ := args["type"].(string)
				props, _ := args["props"].(map[string]any)
				return store.Upsert(sessionID, id, domain.ElementType(elementType), props)
			},
		},
		{
			name:        domain.ToolRemoveUIElement,
			description: "Remove a UI element from the canvas by its ID.",
			schema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id": {Type: "string", Description: "Unique identifier of the element to remove"},
				},
				Required: []string{"id"},
			},
			stateKey: stateKeyElements,
			run: func(store *canvas.Store, sessionID string, args map[string]any) domain.ToolOutcome {
				id, _ := args["id"].(string)
				return store.Remove(sessionID, id)
			},
		},
		{
			name:        domain.ToolClearCanvas,
			description: "Remove all elements from the canvas.",
			schema:      &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}},
			stateKey:    stateKeyElements,
			run: func(store *canvas.Store, sessionID string, _ map[string]any) domain.ToolOutcome {
				return store.Clear(sessionID)
			},
		},
		{
			name:        domain.ToolSetThemeColor,
			description: "Set the application theme color.",
			schema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"themeColor": {Type: "string", Description: "Hex color code (e.g. #ff0000)"},
				},
				Required: []string{"themeColor"},
			},
			stateKey: stateKeyThemeColor,
			run: func(store *canvas.Store, sessionID string, args map[string]any) domain.ToolOutcome {
				color, _ := args["themeColor"].(string)
				return store.SetThemeColor(sessionID, color)
			},
		},
	}
}

func elementTypeEnum() []any {
	out := make([]any, 0, len(domain.AllowedElementTypes))
	for _, t := range domain.AllowedElementTypes {
		out = append(out, string(t))
	}
	return out
}

func buildCallToolResult(outcome domain.ToolOutcome) *mcp.CallToolResult {
	res := &mcp.CallToolResult{
		StructuredContent: outcome,
		IsError:           outcome.Status == domain.ToolStatusError,
	}
	encoded, err := json.Marshal(outcome)
	if err != nil {
		res.Content = []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %s", outcome.Status, outcome.Message)}}
		return res
	}
	res.Content = []mcp.Content{&mcp.TextContent{Text: string(encoded)}}
	return res
}
