package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/pagination"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDocumentsCollection = "documents"
	mongoChunksCollection    = "chunks"
)

type mongoDocument struct {
	ID             string    `bson:"_id"`
	Filename       string    `bson:"filename"`
	SourceURI      string    `bson:"source_uri"`
	Status         string    `bson:"status"`
	ChunkCount     int       `bson:"chunk_count"`
	ExpectedChunks int       `bson:"expected_chunks"`
	Error          string    `bson:"error,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

type mongoChunk struct {
	DocumentID string    `bson:"document_id"`
	Index      int       `bson:"index"`
	Text       string    `bson:"text"`
	CreatedAt  time.Time `bson:"created_at"`
}

// MongoMetadataStore keeps documents and chunks in two MongoDB collections.
type MongoMetadataStore struct {
	documents *mongo.Collection
	chunks    *mongo.Collection
}

func NewMongoMetadataStore(db *mongo.Database) *MongoMetadataStore {
	return &MongoMetadataStore{
		documents: db.Collection(mongoDocumentsCollection),
		chunks:    db.Collection(mongoChunksCollection),
	}
}

// ConnectMongo opens a client and pings it.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique chunk key and the listing indexes.
func (s *MongoMetadataStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.chunks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "index", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create chunk index: %w", err)
	}

	_, err = s.documents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create document indexes: %w", err)
	}
	return nil
}

func (s *MongoMetadataStore) CreateDocument(ctx context.Context, filename, sourceURI string) (*domain.Document, error) {
	doc := domain.NewDocument(uuid.NewString(), filename, sourceURI, time.Now().UTC().Truncate(time.Millisecond))
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.InvalidInput(err.Error())
	}

	_, err := s.documents.InsertOne(ctx, mongoDocument{
		ID:         doc.ID,
		Filename:   doc.Filename,
		SourceURI:  doc.SourceURI,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *MongoMetadataStore) SaveChunk(ctx context.Context, documentID string, index int, text string) error {
	c := &domain.Chunk{DocumentID: documentID, Index: index, Text: text}
	if err := domain.ValidateChunk(c); err != nil {
		return domain.InvalidInput(err.Error())
	}

	exists, err := s.documentExists(ctx, documentID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	_, err = s.chunks.InsertOne(ctx, mongoChunk{
		DocumentID: documentID,
		Index:      index,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrChunkAlreadyExists
	}
	return err
}

// SetExpectedChunks only updates documents still processing, so an
// ingestion the sweeper already failed cannot continue.
func (s *MongoMetadataStore) SetExpectedChunks(ctx context.Context, documentID string, n int) error {
	if n < 0 {
		return domain.InvalidInput("expected chunk count cannot be negative")
	}

	res, err := s.documents.UpdateOne(ctx,
		bson.M{"_id": documentID, "status": string(domain.DocumentStatusProcessing)},
		bson.M{"$set": bson.M{
			"expected_chunks": n,
			"updated_at":      time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		exists, err := s.documentExists(ctx, documentID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrDocumentNotFound
		}
		return domain.ErrDocumentFailed
	}
	return nil
}

func (s *MongoMetadataStore) MarkReady(ctx context.Context, documentID string, chunkCount int) error {
	if chunkCount < 0 {
		return domain.InvalidInput("chunk count cannot be negative")
	}

	filter := bson.M{
		"_id": documentID,
		"$or": bson.A{
			bson.M{"status": bson.M{"$ne": string(domain.DocumentStatusReady)}},
			bson.M{"chunk_count": bson.M{"$ne": chunkCount}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":      string(domain.DocumentStatusReady),
			"chunk_count": chunkCount,
			"updated_at":  time.Now().UTC(),
		},
		"$unset": bson.M{"error": ""},
	}

	res, err := s.documents.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		exists, err := s.documentExists(ctx, documentID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrDocumentNotFound
		}
	}
	return nil
}

func (s *MongoMetadataStore) MarkFailed(ctx context.Context, documentID, reason string) error {
	res, err := s.documents.UpdateOne(ctx,
		bson.M{"_id": documentID},
		bson.M{"$set": bson.M{
			"status":     string(domain.DocumentStatusFailed),
			"error":      reason,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (s *MongoMetadataStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	cur, err := s.chunks.Find(ctx,
		bson.M{"document_id": documentID},
		options.Find().SetSort(bson.D{{Key: "index", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	chunks := []domain.Chunk{}
	for cur.Next(ctx) {
		var mc mongoChunk
		if err := cur.Decode(&mc); err != nil {
			return nil, err
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: mc.DocumentID,
			Index:      mc.Index,
			Text:       mc.Text,
			CreatedAt:  mc.CreatedAt,
		})
	}
	return chunks, cur.Err()
}

func (s *MongoMetadataStore) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	var md mongoDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": documentID}).Decode(&md)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return md.toDomain(), nil
}

func (s *MongoMetadataStore) ListDocuments(ctx context.Context, limit int, cursor string) (*pagination.PageResult[*domain.Document], error) {
	limit = pagination.NormalizeLimit(limit)
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.InvalidInput(err.Error())
	}

	filter := bson.M{}
	if c != nil {
		filter = bson.M{"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": c.CreatedAt}},
			bson.M{"created_at": c.CreatedAt, "_id": bson.M{"$lt": c.LastID}},
		}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))

	docs, err := s.findDocuments(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return pagination.Page(docs, limit, documentID, documentCreatedAt), nil
}

func (s *MongoMetadataStore) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error) {
	filter := bson.M{
		"status":     string(domain.DocumentStatusProcessing),
		"updated_at": bson.M{"$lt": updatedBefore},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(pagination.NormalizeLimit(limit)))
	return s.findDocuments(ctx, filter, opts)
}

func (s *MongoMetadataStore) findDocuments(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Document, error) {
	cur, err := s.documents.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []*domain.Document
	for cur.Next(ctx) {
		var md mongoDocument
		if err := cur.Decode(&md); err != nil {
			return nil, err
		}
		docs = append(docs, md.toDomain())
	}
	return docs, cur.Err()
}

func (s *MongoMetadataStore) documentExists(ctx context.Context, documentID string) (bool, error) {
	n, err := s.documents.CountDocuments(ctx, bson.M{"_id": documentID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (md *mongoDocument) toDomain() *domain.Document {
	return &domain.Document{
		ID:             md.ID,
		Filename:       md.Filename,
		SourceURI:      md.SourceURI,
		Status:         domain.DocumentStatus(md.Status),
		ChunkCount:     md.ChunkCount,
		ExpectedChunks: md.ExpectedChunks,
		Error:          md.Error,
		CreatedAt:      md.CreatedAt.UTC(),
		UpdatedAt:      md.UpdatedAt.UTC(),
	}
}
