package service

import (
	"context"
	"hash/fnv"
	"strings"
	"time"
	"unicode"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/pagination"
	"github.com/cloo-solutions/ragdoc/internal/vectorindex"
)

// MockMetadataStore mocks MetadataStore
type MockMetadataStore struct {
	mock.Mock
}

func (m *MockMetadataStore) CreateDocument(ctx context.Context, filename, sourceURI string) (*domain.Document, error) {
	args := m.Called(ctx, filename, sourceURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockMetadataStore) SetExpectedChunks(ctx context.Context, documentID string, n int) error {
	return m.Called(ctx, documentID, n).Error(0)
}

func (m *MockMetadataStore) SaveChunk(ctx context.Context, documentID string, index int, text string) error {
	return m.Called(ctx, documentID, index, text).Error(0)
}

func (m *MockMetadataStore) MarkReady(ctx context.Context, documentID string, chunkCount int) error {
	return m.Called(ctx, documentID, chunkCount).Error(0)
}

func (m *MockMetadataStore) MarkFailed(ctx context.Context, documentID, reason string) error {
	return m.Called(ctx, documentID, reason).Error(0)
}

func (m *MockMetadataStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockMetadataStore) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockMetadataStore) ListDocuments(ctx context.Context, limit int, cursor string) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

func (m *MockMetadataStore) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, updatedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

// MockObjectStore mocks ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, key, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockExtractor mocks TextExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractText(ctx context.Context, content []byte) (string, error) {
	args := m.Called(ctx, content)
	return args.String(0), args.Error(1)
}

// MockIndexer mocks ChunkIndexer
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Index(ctx context.Context, documentID string, chunks []string) (int, error) {
	args := m.Called(ctx, documentID, chunks)
	return args.Int(0), args.Error(1)
}

func (m *MockIndexer) Reindex(ctx context.Context, documentID string, chunks []string) (int, error) {
	args := m.Called(ctx, documentID, chunks)
	return args.Int(0), args.Error(1)
}

func (m *MockIndexer) Count(ctx context.Context, documentID string) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}

// MockReindexQueue mocks ReindexQueue
type MockReindexQueue struct {
	mock.Mock
}

func (m *MockReindexQueue) Enqueue(ctx context.Context, documentID, reason string) (*domain.ReindexJob, error) {
	args := m.Called(ctx, documentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReindexJob), args.Error(1)
}

// MockRetriever mocks ContextRetriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Query(ctx context.Context, question string, topK int) ([]string, error) {
	args := m.Called(ctx, question, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRetriever) QueryMatches(ctx context.Context, question string, topK int) ([]vectorindex.Match, error) {
	args := m.Called(ctx, question, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorindex.Match), args.Error(1)
}

// MockGenerator mocks Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type fixedUUID string

func (f fixedUUID) Generate() string { return string(f) }

// hashEmbedder is a bag-of-words embedder: each lowercase token adds one to
// a hashed dimension. Texts sharing words end up close in cosine space.
type hashEmbedder struct {
	dims  int
	calls int
}

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, h.dims)
		tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, tok := range tokens {
			f := fnv.New32a()
			_, _ = f.Write([]byte(tok))
			vec[f.Sum32()%uint32(h.dims)]++
		}
		if len(tokens) == 0 {
			vec[0] = 1
		}
		out[i] = vec
	}
	return out, nil
}

// shortEmbedder drops the last vector to simulate a misbehaving provider.
type shortEmbedder struct{ inner *hashEmbedder }

func (s *shortEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := s.inner.Embed(ctx, texts)
	if err != nil || len(vecs) == 0 {
		return vecs, err
	}
	return vecs[:len(vecs)-1], nil
}

// fill repeats phrase until exactly n runes.
func fill(phrase string, n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(phrase)
	}
	return string([]rune(b.String())[:n])
}
