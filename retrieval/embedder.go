package retrieval

import (
	"context"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/m4xw311/machat/errors"
	"github.com/m4xw311/machat/llm"
	"google.golang.org/api/option"
)

// Embedder turns text into a dense vector. Implementations talk to an
// external embedding service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder generates embeddings via the Gemini embedding API.
type GeminiEmbedder struct {
	model *genai.EmbeddingModel
}

// NewGeminiEmbedder creates a GeminiEmbedder for the given embedding model
// (e.g. "gemini-embedding-001"). It requires GEMINI_API_KEY to be set.
func NewGeminiEmbedder(ctx context.Context, modelName string) (*GeminiEmbedder, error) {
	apiKey := os.Getenv(llm.EnvGeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("%s environment variable not set", llm.EnvGeminiAPIKey)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &GeminiEmbedder{model: client.EmbeddingModel(modelName)}, nil
}

// Embed returns the embedding vector for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, errors.Wrapf(err, "embedding request failed")
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("embedding response contained no values")
	}
	return resp.Embedding.Values, nil
}
