package domain

// ElementType names a frontend component registered in the workbench.
type ElementType string

const (
	ElementStatCard  ElementType = "StatCard"
	ElementDataTable ElementType = "DataTable"
	ElementChartCard ElementType = "ChartCard"
)

// AllowedElementTypes lists the component types the canvas accepts, in display order.
var AllowedElementTypes = []ElementType{ElementStatCard, ElementDataTable, ElementChartCard}

// IsAllowedElementType reports whether t is a registered component type.
func IsAllowedElementType(t ElementType) bool {
	for _, allowed := range AllowedElementTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// UIElement is one component instance placed on a canvas.
type UIElement struct {
	ID    string         `json:"id"`
	Type  ElementType    `json:"type"`
	Props map[string]any `json:"props"`
}

// CanvasSnapshot is a copy of one session's canvas.
type CanvasSnapshot struct {
	SessionID  string      `json:"session_id"`
	Elements   []UIElement `json:"elements"`
	ThemeColor string      `json:"theme_color,omitempty"`
}

// ToolStatus is the status reported back to the model by a canvas tool.
type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusWarning ToolStatus = "warning"
	ToolStatusError   ToolStatus = "error"
)

// ToolOutcome is the structured payload returned by canvas tools.
// ElementCount is a pointer so that results without a count omit it.
type ToolOutcome struct {
	Status       ToolStatus `json:"status"`
	Message      string     `json:"message"`
	ElementCount *int       `json:"element_count,omitempty"`
}

// Tool names handled by the workbench.
const (
	ToolUpsertUIElement = "upsert_ui_element"
	ToolRemoveUIElement = "remove_ui_element"
	ToolClearCanvas     = "clear_canvas"
	ToolSetThemeColor   = "setThemeColor"
)
