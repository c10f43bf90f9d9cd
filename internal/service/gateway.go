package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/embedding"
	"github.com/cloo-solutions/ragdoc/internal/vectorindex"
)

// Gateway pairs an embedder with a vector index. It is the only component
// that writes to or reads from the index.
type Gateway struct {
	embedder embedding.Embedder
	index    vectorindex.Index
}

func NewGateway(embedder embedding.Embedder, index vectorindex.Index) *Gateway {
	return &Gateway{embedder: embedder, index: index}
}

// Index embeds the cleaned chunks in one batch and upserts them under keys
// "{documentID}_{i}", where i is the position in the cleaned sequence.
func (g *Gateway) Index(ctx context.Context, documentID string, chunks []string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, domain.InvalidInput("document id is required")
	}
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyChunks
	}

	cleaned := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return 0, domain.ErrEmptyChunks
	}

	vectors, err := g.embedder.Embed(ctx, cleaned)
	if err != nil {
		return 0, backendError("embedding request failed", err)
	}
	if len(vectors) != len(cleaned) {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, domain.ErrEmbeddingCount.Message,
			fmt.Errorf("got %d vectors for %d inputs", len(vectors), len(cleaned)))
	}

	records := make([]domain.EmbeddingRecord, len(cleaned))
	for i, text := range cleaned {
		records[i] = domain.EmbeddingRecord{
			Key:        domain.CompositeKey(documentID, i),
			DocumentID: documentID,
			Index:      i,
			Text:       text,
			Vector:     vectors[i],
		}
	}

	if err := g.index.Upsert(ctx, records); err != nil {
		return 0, backendError("index upsert failed", err)
	}
	return len(records), nil
}

// Query returns chunk texts, most similar first. A blank question returns
// an empty slice without touching the embedder or the index.
func (g *Gateway) Query(ctx context.Context, question string, topK int) ([]string, error) {
	matches, err := g.QueryMatches(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return texts, nil
}

func (g *Gateway) QueryMatches(ctx context.Context, question string, topK int) ([]vectorindex.Match, error) {
	if strings.TrimSpace(question) == "" {
		return []vectorindex.Match{}, nil
	}
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}

	vectors, err := g.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, backendError("embedding request failed", err)
	}
	if len(vectors) != 1 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, domain.ErrEmbeddingCount.Message,
			fmt.Errorf("got %d vectors for 1 input", len(vectors)))
	}

	matches, err := g.index.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, backendError("index query failed", err)
	}
	if matches == nil {
		matches = []vectorindex.Match{}
	}
	return matches, nil
}

// Reindex drops a document's index entries and writes them again.
func (g *Gateway) Reindex(ctx context.Context, documentID string, chunks []string) (int, error) {
	if err := g.index.DeleteDocument(ctx, documentID); err != nil {
		return 0, backendError("index delete failed", err)
	}
	return g.Index(ctx, documentID, chunks)
}

// Count reports how many index entries a document has.
func (g *Gateway) Count(ctx context.Context, documentID string) (int, error) {
	n, err := g.index.CountDocument(ctx, documentID)
	if err != nil {
		return 0, backendError("index count failed", err)
	}
	return n, nil
}

func backendError(msg string, err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.TransientBackend(msg, err)
}
