package canvas

import (
	"encoding/json"
	"fmt"

	"genui/internal/domain"
)

// BaseInstruction describes the workbench components to the model.
const BaseInstruction = `You manage a generative UI workbench. Use tools to create, update or remove elements from the user's view.

Available Components & Props:
1. StatCard: { title, value, trend, trendDirection }
2. DataTable: { columns: string[], data: object[] }
3. ChartCard: { title, chartType, data: object[] }

Always use a meaningful unique 'id' for elements (e.g. 'rev_stat', 'user_table').
`

// Instruction renders the system prompt for a session: the current canvas
// followed by the base instruction.
func (s *Store) Instruction(sessionID string) string {
	return RenderInstruction(s.Elements(sessionID))
}

func RenderInstruction(elements []domain.UIElement) string {
	if elements == nil {
		elements = []domain.UIElement{}
	}
	encoded, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		encoded = []byte("[]")
	}
	return fmt.Sprintf(`You are the Workbench Assistant. You help the user build dashboards and tools.
Current Canvas Elements:
%s

When asked to create or update UI, use 'upsert_ui_element'.
Available Types: %s.
%s`, encoded, allowedTypesList(), BaseInstruction)
}
