// Package embedding provides batch text embedding providers.
//
// Two providers are supported: the OpenAI embeddings API through go-openai,
// and any OpenAI-compatible server such as Hugging Face TEI through
// langchaingo.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when no texts are given
	ErrEmptyInput = errors.New("embedding input cannot be empty")
	// ErrWrongDimensions is returned when a vector has an unexpected size
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrUnknownProvider is returned for an unsupported provider name
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderTEI    = "tei"
)

// Embedder maps texts to fixed-dimension vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
}

// New builds the embedder named by cfg.Provider.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case ProviderTEI:
		return NewLangchainEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
