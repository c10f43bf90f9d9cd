package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/logging"
)

// pointNamespace derives stable point UUIDs from composite keys, since
// Qdrant only accepts integer or UUID point ids.
var pointNamespace = uuid.MustParse("6f0c1c8e-2d0b-4f6a-9a55-6d9f3f0b2a17")

// QdrantConfig configures the Qdrant backend. VectorSize fixes the
// collection dimension; every upserted vector must match it.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	VectorSize int
}

// Qdrant stores embeddings in a Qdrant collection over gRPC.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	vectorSize int
	logger     *zap.Logger
}

func NewQdrant(cfg QdrantConfig, logger *zap.Logger) (*Qdrant, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("qdrant vector size must be positive, got %d", cfg.VectorSize)
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &Qdrant{
		client:     client,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		logger:     logging.OrNop(logger),
	}, nil
}

// PointID maps a composite key to its Qdrant point UUID.
func PointID(key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

// EnsureCollection creates the collection with cosine distance if missing.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collection,
		FieldName:      FieldDocumentID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", FieldDocumentID, err)
	}

	q.logger.Info("created qdrant collection",
		zap.String("collection", q.collection),
		zap.Int("vector_size", q.vectorSize),
	)
	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := checkDimensions(records, q.vectorSize); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(rec.Key)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				FieldKey:        rec.Key,
				FieldDocumentID: rec.DocumentID,
				FieldIndex:      int64(rec.Index),
				FieldContent:    rec.Text,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points to collection %s: %w", q.collection, err)
	}
	return nil
}

// Query returns at most topK points; Qdrant clamps to what exists.
func (q *Qdrant) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", q.collection, err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		matches = append(matches, Match{
			Key:        payload[FieldKey].GetStringValue(),
			DocumentID: payload[FieldDocumentID].GetStringValue(),
			Index:      int(payload[FieldIndex].GetIntegerValue()),
			Text:       payload[FieldContent].GetStringValue(),
			Score:      p.GetScore(),
		})
	}
	return matches, nil
}

func (q *Qdrant) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentID)),
	})
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	return nil
}

func (q *Qdrant) CountDocument(ctx context.Context, documentID string) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         documentFilter(documentID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting document %s: %w", documentID, err)
	}
	return int(n), nil
}

// Close releases the gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

func documentFilter(documentID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(FieldDocumentID, documentID)},
	}
}
