package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultTEIModel is used when no model is configured for TEI.
const DefaultTEIModel = "BAAI/bge-small-en-v1.5"

// LangchainEmbedder talks to an OpenAI-compatible embeddings server
// (TEI, vLLM, LocalAI) through langchaingo.
type LangchainEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
}

// NewLangchainEmbedder creates an embedder for an OpenAI-compatible server.
func NewLangchainEmbedder(cfg Config) (*LangchainEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tei embedding provider requires a base URL")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultTEIModel
	}
	// langchaingo requires a token even when the server ignores it
	token := cfg.APIKey
	if token == "" {
		token = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
		openai.WithToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI-compatible client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &LangchainEmbedder{embedder: embedder, dimensions: cfg.Dimensions}, nil
}

// Embed returns one vector per input text.
func (e *LangchainEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	if e.dimensions > 0 {
		for i, v := range vectors {
			if len(v) != e.dimensions {
				return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrWrongDimensions, i, len(v), e.dimensions)
			}
		}
	}

	return vectors, nil
}
