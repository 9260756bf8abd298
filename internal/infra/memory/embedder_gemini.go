package memory

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"genui/internal/domain"
)

// GeminiEmbedder uses the Gemini embedding API with retrieval task hints.
// The configured dimensionality is not sent because the client library
// has no field for it; vectors come back at the model's native size.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, _ int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = domain.DefaultGeminiEmbeddingModel
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string, task domain.EmbeddingTask) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = geminiTaskType(task)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}

func geminiTaskType(task domain.EmbeddingTask) genai.TaskType {
	switch task {
	case domain.TaskRetrievalDocument:
		return genai.TaskTypeRetrievalDocument
	case domain.TaskRetrievalQuery:
		return genai.TaskTypeRetrievalQuery
	case domain.TaskSemanticSimilarity:
		return genai.TaskTypeSemanticSimilarity
	case domain.TaskClassification:
		return genai.TaskTypeClassification
	case domain.TaskClustering:
		return genai.TaskTypeClustering
	default:
		return genai.TaskTypeUnspecified
	}
}
