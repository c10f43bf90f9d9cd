package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/api/handlers"
	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/pagination"
	"github.com/cloo-solutions/ragdoc/internal/service"
)

type stubIngestion struct{}

func (stubIngestion) Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error) {
	return &service.IngestResult{DocumentID: "doc-1", ChunkCount: 1}, nil
}

type stubDocuments struct{}

func (stubDocuments) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if id != "doc-1" {
		return nil, domain.ErrDocumentNotFound
	}
	return domain.NewDocument("doc-1", "a.pdf", "file:///tmp/a.pdf", time.Now()), nil
}

func (stubDocuments) ListDocuments(ctx context.Context, limit int, cursor string) (*pagination.PageResult[*domain.Document], error) {
	return &pagination.PageResult[*domain.Document]{Items: []*domain.Document{}}, nil
}

func (stubDocuments) ListChunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	return []domain.Chunk{{DocumentID: id, Index: 0, Text: "hello"}}, nil
}

type stubReindex struct{}

func (stubReindex) Enqueue(ctx context.Context, id, reason string) (*domain.ReindexJob, error) {
	return domain.NewReindexJob("job-1", id, reason, time.Now()), nil
}

type stubRetrieval struct{}

func (stubRetrieval) Answer(ctx context.Context, question string, topK int) (*service.Answer, error) {
	return &service.Answer{Text: "answer", Sources: []service.Source{}}, nil
}

func newTestRouter(apiKey string) http.Handler {
	return NewRouter(RouterConfig{
		Logger:          zap.NewNop(),
		APIKey:          apiKey,
		DocumentHandler: handlers.NewDocumentHandler(stubIngestion{}, stubDocuments{}, stubReindex{}),
		QueryHandler:    handlers.NewQueryHandler(stubRetrieval{}),
	})
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter("secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["data"]["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter("secret")

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ragdoc_http_requests_total")
}

func TestRouter_APIRoutes_RequireAuth(t *testing.T) {
	router := newTestRouter("secret")

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/upload"},
		{http.MethodPost, "/api/v1/query"},
		{http.MethodGet, "/api/v1/chunks/doc-1"},
		{http.MethodGet, "/api/v1/documents"},
		{http.MethodGet, "/api/v1/documents/doc-1"},
		{http.MethodPost, "/api/v1/documents/doc-1/reindex"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_APIRoutes_WithValidAuth(t *testing.T) {
	router := newTestRouter("secret")

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/api/v1/query", `{"question":"hi"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/chunks/doc-1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/chunks/nope", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/documents", "", http.StatusOK},
		{http.MethodGet, "/api/v1/documents/doc-1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/documents/doc-1/reindex", "", http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Authorization", "Bearer secret")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRouter_NoAPIKeyConfigured(t *testing.T) {
	router := newTestRouter("")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_BodyLimit(t *testing.T) {
	router := NewRouter(RouterConfig{
		MaxBodyBytes:    16,
		DocumentHandler: handlers.NewDocumentHandler(stubIngestion{}, stubDocuments{}, stubReindex{}),
		QueryHandler:    handlers.NewQueryHandler(stubRetrieval{}),
	})

	body := `{"question":"` + strings.Repeat("x", 64) + `"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
