//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloo-solutions/ragdoc/internal/api/handlers"
	"github.com/cloo-solutions/ragdoc/internal/extract"
	"github.com/cloo-solutions/ragdoc/internal/jobs"
	"github.com/cloo-solutions/ragdoc/internal/llm"
	"github.com/cloo-solutions/ragdoc/internal/repository"
	"github.com/cloo-solutions/ragdoc/internal/server"
	"github.com/cloo-solutions/ragdoc/internal/service"
	"github.com/cloo-solutions/ragdoc/internal/storage"
	"github.com/cloo-solutions/ragdoc/internal/testutil"
	"github.com/cloo-solutions/ragdoc/internal/vectorindex"
)

const testAPIKey = "rgd_e2e_key"

// E2ETestEnv holds the containers and the running API for one test.
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	Gateway    *service.Gateway
	Reindex    *service.ReindexService
	JobWorker  *jobs.ReindexWorker
	ServerURL  string
	prompts    []string
	mu         sync.Mutex
	HTTPClient *http.Client
}

// catRunner stands in for pdftotext: the uploaded "PDF" is plain text.
type catRunner struct{}

func (catRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	return os.ReadFile(args[len(args)-2])
}

// wordEmbedder hashes lowercase tokens into a fixed-size bag of words.
type wordEmbedder struct{ dims int }

func (w wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, w.dims)
		tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, tok := range tokens {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			vec[h.Sum32()%uint32(w.dims)]++
		}
		if len(tokens) == 0 {
			vec[0] = 1
		}
		out[i] = vec
	}
	return out, nil
}

func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "e2e-documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, s3Client.EnsureBucket(ctx))

	env := &E2ETestEnv{T: t, Ctx: ctx, Pool: pool, HTTPClient: &http.Client{}}

	// The completion backend echoes the prompt so tests can see the context order.
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		env.mu.Lock()
		env.prompts = append(env.prompts, req.Prompt)
		env.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"response": req.Prompt, "done": true})
	}))
	t.Cleanup(ollama.Close)

	router, err := llm.NewRouter(llm.Config{Provider: llm.ProviderOllama, BaseURL: ollama.URL}, logger)
	require.NoError(t, err)

	meta := repository.NewPostgresMetadataStore(pool)
	jobRepo := repository.NewReindexJobRepository(pool)
	env.Gateway = service.NewGateway(wordEmbedder{dims: 256}, vectorindex.NewPGVector(pool))

	ingestion := service.NewIngestionService(
		s3Client, meta, extract.NewPDFToTextWithRunner(catRunner{}), env.Gateway, logger,
		service.WithReindexQueue(jobRepo),
	)
	env.Reindex = service.NewReindexService(meta, env.Gateway, jobRepo, logger)
	env.JobWorker = jobs.NewReindexWorker(jobRepo, env.Reindex, logger)
	retrieval := service.NewRetrievalService(env.Gateway, router, service.DefaultTopK, logger)

	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		Logger:          logger,
		APIKey:          testAPIKey,
		DocumentHandler: handlers.NewDocumentHandler(ingestion, meta, env.Reindex),
		QueryHandler:    handlers.NewQueryHandler(retrieval),
	}))
	t.Cleanup(srv.Close)
	env.ServerURL = srv.URL

	return env
}

// Prompts returns every prompt the completion stub has received.
func (e *E2ETestEnv) Prompts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (e *E2ETestEnv) do(req *http.Request, out any) int {
	e.T.Helper()
	req.Header.Set("Authorization", "Bearer "+testAPIKey)

	resp, err := e.HTTPClient.Do(req)
	require.NoError(e.T, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(e.T, err)

	var env envelope
	require.NoError(e.T, json.Unmarshal(body, &env), string(body))
	if out != nil && resp.StatusCode < 400 {
		require.NoError(e.T, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode
}

func (e *E2ETestEnv) Upload(filename string, content []byte, out any) int {
	e.T.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(e.T, err)
	_, err = part.Write(content)
	require.NoError(e.T, err)
	require.NoError(e.T, mw.Close())

	req, err := http.NewRequestWithContext(e.Ctx, http.MethodPost, e.ServerURL+"/api/v1/upload", &body)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req, out)
}

func (e *E2ETestEnv) Get(path string, out any) int {
	e.T.Helper()
	req, err := http.NewRequestWithContext(e.Ctx, http.MethodGet, e.ServerURL+path, nil)
	require.NoError(e.T, err)
	return e.do(req, out)
}

func (e *E2ETestEnv) Post(path string, payload any, out any) int {
	e.T.Helper()
	data, err := json.Marshal(payload)
	require.NoError(e.T, err)
	req, err := http.NewRequestWithContext(e.Ctx, http.MethodPost, e.ServerURL+path, bytes.NewReader(data))
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, out)
}

// fill repeats phrase until exactly n runes.
func fill(phrase string, n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(phrase)
	}
	return string([]rune(b.String())[:n])
}
