package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"genui/internal/domain"
)

// ErrEmptyEmbedding is returned when a provider answers without a vector.
var ErrEmptyEmbedding = errors.New("embedding provider returned no vector")

// Embedder turns text into a vector. Providers that do not support task
// hints ignore the task argument.
type Embedder interface {
	Embed(ctx context.Context, text string, task domain.EmbeddingTask) ([]float32, error)
}

// NewEmbedder builds the configured provider. Provider "none" (or empty)
// returns a nil Embedder, which disables semantic search.
func NewEmbedder(ctx context.Context, cfg domain.EmbeddingConfig) (Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "gemini":
		embedder, err := NewGeminiEmbedder(ctx, resolveAPIKey(cfg.APIKeyEnvVar, "GOOGLE_API_KEY", "GEMINI_API_KEY"), cfg.Model, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case "openai":
		embedder, err := NewOpenAIEmbedder(resolveAPIKey(cfg.APIKeyEnvVar, "OPENAI_API_KEY"), cfg.Model, cfg.BaseURL, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case "ollama":
		embedder, err := NewOllamaEmbedder(cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func resolveAPIKey(configured string, fallbacks ...string) string {
	if name := strings.TrimSpace(configured); name != "" {
		return os.Getenv(name)
	}
	for _, name := range fallbacks {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}
