package toolset

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// toolsetEntrySchema only enforces the id. Every other field is coerced by
// normalizeToolset so that a sloppy entry is still served.
const toolsetEntrySchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": { "type": "string", "minLength": 1 }
  },
  "additionalProperties": true
}`

const deprecationEntrySchemaJSON = `{
  "type": "object",
  "properties": {
    "reason": { "type": "string" },
    "removal_date": { "type": "string" },
    "migration_guide": { "type": "string" }
  },
  "additionalProperties": true
}`

var (
	toolsetEntrySchema     = mustResolveSchema(toolsetEntrySchemaJSON)
	deprecationEntrySchema = mustResolveSchema(deprecationEntrySchemaJSON)
)

func mustResolveSchema(raw string) *jsonschema.Resolved {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		panic(fmt.Sprintf("toolset: decode schema: %v", err))
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("toolset: resolve schema: %v", err))
	}
	return resolved
}

func validateToolsetEntry(entry any) error {
	return toolsetEntrySchema.Validate(entry)
}

func validateDeprecationEntry(entry any) error {
	return deprecationEntrySchema.Validate(entry)
}
