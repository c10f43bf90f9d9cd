package llm

import (
	"context"
	"net/http"
	"strings"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.2"
)

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// ollamaBackend calls a local Ollama daemon's /api/generate endpoint.
type ollamaBackend struct {
	client  *http.Client
	baseURL string
	model   string
}

func newOllama(cfg Config, client *http.Client) *ollamaBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &ollamaBackend{client: client, baseURL: strings.TrimRight(baseURL, "/"), model: model}
}

func (b *ollamaBackend) Name() string { return ProviderOllama }

func (b *ollamaBackend) Generate(ctx context.Context, prompt string) (string, error) {
	var out ollamaGenerateResponse
	err := postJSON(ctx, b.client, ProviderOllama, b.baseURL+"/api/generate", nil,
		ollamaGenerateRequest{Model: b.model, Prompt: prompt, Stream: false}, &out)
	if err != nil {
		return "", err
	}
	return nonEmpty(ProviderOllama, out.Response)
}
