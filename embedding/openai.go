package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultModel matches the model the persisted indexes have always been built
// with; changing it requires a full index rebuild.
const DefaultModel = "text-embedding-3-large"

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	llm   *openai.LLM
	model string
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if model == "" {
		model = DefaultModel
	}
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai embedding client: %w", err)
	}
	return &OpenAI{llm: llm, model: model}, nil
}

// Model reports which embedding model this client produces vectors with.
func (c *OpenAI) Model() string {
	return c.model
}

func (c *OpenAI) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
