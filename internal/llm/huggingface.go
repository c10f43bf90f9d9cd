package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const (
	DefaultHuggingFaceBaseURL = "https://router.huggingface.co/hf-inference"
	DefaultHuggingFaceModel   = "mistralai/Mistral-7B-Instruct-v0.3"
)

type hfRequest struct {
	Inputs string `json:"inputs"`
}

type hfGeneration struct {
	GeneratedText *string `json:"generated_text"`
}

// huggingFaceBackend calls the hosted inference router.
type huggingFaceBackend struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func newHuggingFace(cfg Config, client *http.Client) *huggingFaceBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultHuggingFaceBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultHuggingFaceModel
	}
	return &huggingFaceBackend{client: client, baseURL: strings.TrimRight(baseURL, "/"), model: model, apiKey: cfg.APIKey}
}

func (b *huggingFaceBackend) Name() string { return ProviderHuggingFace }

// Generate returns the first generated_text. Models that answer with a
// different shape get the raw JSON back rather than an empty string.
func (b *huggingFaceBackend) Generate(ctx context.Context, prompt string) (string, error) {
	var raw json.RawMessage
	err := postJSON(ctx, b.client, ProviderHuggingFace, b.baseURL+"/models/"+b.model,
		map[string]string{"Authorization": "Bearer " + b.apiKey},
		hfRequest{Inputs: prompt}, &raw)
	if err != nil {
		return "", err
	}

	var gens []hfGeneration
	if err := json.Unmarshal(raw, &gens); err == nil && len(gens) > 0 && gens[0].GeneratedText != nil {
		return nonEmpty(ProviderHuggingFace, *gens[0].GeneratedText)
	}
	return string(raw), nil
}
