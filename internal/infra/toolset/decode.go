package toolset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var errSourceMissing = errors.New("source missing")

// readDocument reads a toolset document and decodes it by file extension.
// A missing or empty path yields errSourceMissing.
func readDocument(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errSourceMissing
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errSourceMissing
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeDocument(path, data)
}

func decodeDocument(path string, data []byte) (map[string]any, error) {
	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		raw = doc
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	doc, ok := normalizeValue(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be an object, got %s", typeName(raw))
	}
	return doc, nil
}

// normalizeValue converts decoder-specific values into the JSON data model
// so that schema validation behaves the same for every format.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339)
	case toml.LocalDate:
		return v.String()
	case toml.LocalDateTime:
		return v.String()
	case toml.LocalTime:
		return v.String()
	default:
		return v
	}
}

func typeName(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case map[string]any, map[any]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case int, int64, uint64:
		return "integer"
	default:
		return strconv.Quote(fmt.Sprintf("%T", v))
	}
}
