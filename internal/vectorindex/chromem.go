package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/logging"
)

// DefaultCollection is the chromem collection holding chunk embeddings.
const DefaultCollection = "ragdoc_chunks"

var errNoEmbeddingFunc = errors.New("chromem index only accepts precomputed embeddings")

// Chromem is an in-process index. With an empty path it is memory-only.
type Chromem struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewChromem opens (or creates) the collection. chromem normalizes vectors on
// insert and ranks by cosine similarity.
func NewChromem(path, collection string, logger *zap.Logger) (*Chromem, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
		}
	}

	// Embeddings are always supplied by the gateway, never computed here.
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	}

	coll, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", collection, err)
	}

	return &Chromem{db: db, collection: coll, logger: logging.OrNop(logger)}, nil
}

// Upsert adds or replaces records by composite key.
func (c *Chromem) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:      rec.Key,
			Content: rec.Text,
			Metadata: map[string]string{
				FieldDocumentID: rec.DocumentID,
				FieldIndex:      strconv.Itoa(rec.Index),
			},
			Embedding: rec.Vector,
		}
	}

	// concurrency of 1 since embeddings are precomputed
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	c.logger.Debug("upserted chunks into chromem", zap.Int("count", len(records)))
	return nil
}

// Query returns the topK most similar records.
func (c *Chromem) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	// chromem requires nResults <= document count
	count := c.collection.Count()
	if count == 0 {
		return []Match{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := c.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	// Identity comes from the composite key; metadata only serves deletes.
	matches := make([]Match, len(results))
	for i, r := range results {
		docID, idx, err := domain.ParseCompositeKey(r.ID)
		if err != nil {
			return nil, fmt.Errorf("reading result: %w", err)
		}
		matches[i] = Match{
			Key:        r.ID,
			DocumentID: docID,
			Index:      idx,
			Text:       r.Content,
			Score:      r.Similarity,
		}
	}
	return matches, nil
}

// DeleteDocument removes every record belonging to documentID.
func (c *Chromem) DeleteDocument(ctx context.Context, documentID string) error {
	if c.collection.Count() == 0 {
		return nil
	}
	if err := c.collection.Delete(ctx, map[string]string{FieldDocumentID: documentID}, nil); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	return nil
}

// CountDocument looks up composite keys from 0 upward. Keys written by the
// gateway are dense, so the first miss ends the run.
func (c *Chromem) CountDocument(ctx context.Context, documentID string) (int, error) {
	n := 0
	for {
		if _, err := c.collection.GetByID(ctx, domain.CompositeKey(documentID, n)); err != nil {
			return n, nil
		}
		n++
	}
}
