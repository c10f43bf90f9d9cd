package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOpenAIModel is the OpenAI model used when none is configured
	DefaultOpenAIModel = openai.SmallEmbedding3
	// DefaultOpenAIDimensions matches text-embedding-3-small
	DefaultOpenAIDimensions = 1536
	// MaxInputsPerRequest is the most inputs the embeddings endpoint accepts
	// in one call.
	MaxInputsPerRequest = 2048
)

// ErrNoAPIKey is returned when the OpenAI provider has no key
var ErrNoAPIKey = errors.New("openai embedding provider requires an API key")

// EmbeddingAPI is the batch call the OpenAI embedder depends on.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIAdapter wraps go-openai's embeddings endpoint.
type OpenAIAdapter struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
}

func NewOpenAIAdapter(apiKey, baseURL string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		batchSize: MaxInputsPerRequest,
	}
}

// CreateEmbeddings sends the texts in requests of at most batchSize inputs
// and returns the vectors in input order.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += a.batchSize {
		end := min(start+a.batchSize, len(texts))
		batch, err := a.createBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch at input %d: %w", start, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

// createBatch reorders one response by its data index.
func (a *OpenAIAdapter) createBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// OpenAIEmbedder checks vector dimensions on top of the raw API.
type OpenAIEmbedder struct {
	api        EmbeddingAPI
	dimensions int
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI API.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultOpenAIDimensions
	}
	return &OpenAIEmbedder{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.BaseURL, openai.EmbeddingModel(cfg.Model)),
		dimensions: dimensions,
	}, nil
}

// Embed returns one vector per input text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors, err := e.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	for i, v := range vectors {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrWrongDimensions, i, len(v), e.dimensions)
		}
	}

	return vectors, nil
}

// Dimensions returns the expected vector size.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}
