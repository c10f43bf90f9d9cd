// Package llm routes completion requests to exactly one configured backend.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/logging"
	"github.com/cloo-solutions/ragdoc/internal/metrics"
	"github.com/cloo-solutions/ragdoc/internal/telemetry"
)

// Provider names.
const (
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
	ProviderOllama      = "ollama"
	ProviderOpenAI      = "openai"
)

const DefaultTimeout = 120 * time.Second

// Config selects the backend. RateLimit is requests per second; zero
// disables limiting.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
}

type backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Router dispatches every prompt to the backend chosen at construction.
type Router struct {
	backend backend
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRouter validates cfg and builds the backend. Unknown providers and
// hosted providers without credentials are configuration errors.
func NewRouter(cfg Config, logger *zap.Logger) (*Router, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	client := newHTTPClient(cfg.Timeout)

	var b backend
	switch provider {
	case ProviderOllama:
		b = newOllama(cfg, client)
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, domain.ConfigurationError("gemini requires LLM_API_KEY")
		}
		b = newGemini(cfg, client)
	case ProviderHuggingFace:
		if cfg.APIKey == "" {
			return nil, domain.ConfigurationError("huggingface requires LLM_API_KEY")
		}
		b = newHuggingFace(cfg, client)
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, domain.ConfigurationError("openai requires LLM_API_KEY")
		}
		b = newOpenAI(cfg)
	default:
		return nil, domain.ConfigurationError(fmt.Sprintf("unsupported LLM provider %q", cfg.Provider))
	}

	r := &Router{backend: b, logger: logging.OrNop(logger)}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r, nil
}

// Backend returns the selected provider name.
func (r *Router) Backend() string {
	return r.backend.Name()
}

// Generate sends prompt to the backend. Failures are *RouterError.
func (r *Router) Generate(ctx context.Context, prompt string) (string, error) {
	name := r.backend.Name()

	ctx, span := telemetry.StartSpan(ctx, "llm.generate", telemetry.SpanAttributes{Backend: name, Operation: "generate"})
	defer span.End()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			metrics.RouterRequests.WithLabelValues(name, metrics.ResultError).Inc()
			return "", &RouterError{Backend: name, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	start := time.Now()
	text, err := r.backend.Generate(ctx, prompt)
	if err != nil {
		metrics.RouterRequests.WithLabelValues(name, metrics.ResultError).Inc()
		span.SetError(err)
		r.logger.Warn("completion request failed", zap.String("backend", name), zap.Error(err))
		return "", err
	}

	metrics.RouterRequests.WithLabelValues(name, metrics.ResultSuccess).Inc()
	r.logger.Debug("completion request succeeded",
		zap.String("backend", name),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
