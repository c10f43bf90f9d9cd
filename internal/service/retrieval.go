package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/metrics"
	"github.com/cloo-solutions/ragdoc/internal/telemetry"
	"github.com/cloo-solutions/ragdoc/internal/vectorindex"
)

const DefaultTopK = 4

const promptTemplate = "Use the following context to answer the question.\n\n" +
	"Context:\n%CONTEXT%\n\n" +
	"Question:\n%QUESTION%\n\n" +
	"Answer based only on the context:"

// Source is a retrieved chunk cited by an answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// RetrievalService answers questions from indexed context. An empty
// retrieval result is a valid "no context" answer.
type RetrievalService struct {
	retriever ContextRetriever
	generator Generator
	topK      int
	logger    *zap.Logger
}

func NewRetrievalService(retriever ContextRetriever, generator Generator, topK int, logger *zap.Logger) *RetrievalService {
	if topK < 1 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{retriever: retriever, generator: generator, topK: topK, logger: logger}
}

// AnswerContext returns the topK chunk texts for question.
func (s *RetrievalService) AnswerContext(ctx context.Context, question string, topK int) ([]string, error) {
	return s.retriever.Query(ctx, question, s.resolveTopK(topK))
}

// AssemblePrompt fills the fixed prompt template. Chunks are joined by a
// blank line; an empty chunk list still yields a well-formed prompt.
func AssemblePrompt(question string, chunks []string) string {
	r := strings.NewReplacer(
		"%CONTEXT%", strings.Join(chunks, "\n\n"),
		"%QUESTION%", question,
	)
	return r.Replace(promptTemplate)
}

func (s *RetrievalService) Answer(ctx context.Context, question string, topK int) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if topK < 0 {
		return nil, domain.ErrInvalidTopK
	}

	ctx, span := telemetry.StartSpan(ctx, "retrieval.answer", telemetry.SpanAttributes{Operation: "answer"})
	defer span.End()

	answer, err := s.answer(ctx, question, s.resolveTopK(topK))
	if err != nil {
		metrics.QueryTotal.WithLabelValues(metrics.ResultError).Inc()
		span.SetError(err)
		return nil, err
	}
	metrics.QueryTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return answer, nil
}

func (s *RetrievalService) answer(ctx context.Context, question string, topK int) (*Answer, error) {
	matches, err := s.retriever.QueryMatches(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	if len(matches) == 0 {
		s.logger.Debug("no context retrieved for question")
	}

	text, err := s.generator.Generate(ctx, AssemblePrompt(question, texts))
	if err != nil {
		return nil, err
	}

	return &Answer{Text: text, Sources: toSources(matches)}, nil
}

// resolveTopK maps an unset (zero) topK to the configured default.
func (s *RetrievalService) resolveTopK(topK int) int {
	if topK == 0 {
		return s.topK
	}
	return topK
}

func toSources(matches []vectorindex.Match) []Source {
	sources := make([]Source, len(matches))
	for i, m := range matches {
		sources[i] = Source{DocumentID: m.DocumentID, Index: m.Index, Text: m.Text, Score: m.Score}
	}
	return sources
}
