package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-1.5-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiBackend struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func newGemini(cfg Config, client *http.Client) *geminiBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &geminiBackend{client: client, baseURL: strings.TrimRight(baseURL, "/"), model: model, apiKey: cfg.APIKey}
}

func (b *geminiBackend) Name() string { return ProviderGemini }

func (b *geminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := b.baseURL + "/v1beta/models/" + url.PathEscape(b.model) + ":generateContent?key=" + url.QueryEscape(b.apiKey)

	var out geminiResponse
	err := postJSON(ctx, b.client, ProviderGemini, endpoint, nil,
		geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}, &out)
	if err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 {
		return "", &RouterError{Backend: ProviderGemini, Status: http.StatusOK, Err: errEmptyCompletion}
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return nonEmpty(ProviderGemini, sb.String())
}
