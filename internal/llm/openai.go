package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

// openAIBackend uses chat completions. BaseURL lets it target any
// OpenAI-compatible server.
type openAIBackend struct {
	client *openai.Client
	model  string
}

func newOpenAI(cfg Config) *openAIBackend {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = newHTTPClient(cfg.Timeout)

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &openAIBackend{client: openai.NewClientWithConfig(oc), model: model}
}

func (b *openAIBackend) Name() string { return ProviderOpenAI }

func (b *openAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", openAIRouterError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &RouterError{Backend: ProviderOpenAI, Status: http.StatusOK, Err: errEmptyCompletion}
	}
	return nonEmpty(ProviderOpenAI, resp.Choices[0].Message.Content)
}

func openAIRouterError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &RouterError{Backend: ProviderOpenAI, Status: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &RouterError{Backend: ProviderOpenAI, Status: reqErr.HTTPStatusCode, Err: err}
	}
	return &RouterError{Backend: ProviderOpenAI, Err: err}
}
