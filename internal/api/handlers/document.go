package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/ragdoc/internal/api"
	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/pagination"
	"github.com/cloo-solutions/ragdoc/internal/service"
)

const multipartMemory = 8 << 20

type IngestionService interface {
	Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error)
}

type DocumentService interface {
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	ListDocuments(ctx context.Context, limit int, cursor string) (*pagination.PageResult[*domain.Document], error)
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

type ReindexService interface {
	Enqueue(ctx context.Context, documentID, reason string) (*domain.ReindexJob, error)
}

type DocumentHandler struct {
	ingest  IngestionService
	docs    DocumentService
	reindex ReindexService
}

func NewDocumentHandler(ingest IngestionService, docs DocumentService, reindex ReindexService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, docs: docs, reindex: reindex}
}

type DocumentResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	SourceURI  string `json:"source_uri"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type ChunkResponse struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type ListDocumentsResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Cursor    string              `json:"cursor,omitempty"`
	HasMore   bool                `json:"has_more"`
}

type ReindexResponse struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		Filename:   d.Filename,
		SourceURI:  d.SourceURI,
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		Error:      d.Error,
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Upload reads the multipart "file" field and runs the ingestion pipeline
// synchronously.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.TooLarge(w)
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	result, err := h.ingest.Ingest(r.Context(), service.IngestInput{
		Filename: header.Filename,
		Content:  content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	doc, err := h.docs.GetDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	page, err := h.docs.ListDocuments(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &ListDocumentsResponse{
		Documents: make([]*DocumentResponse, 0, len(page.Items)),
		Cursor:    page.Cursor,
		HasMore:   page.HasMore,
	}
	for _, d := range page.Items {
		resp.Documents = append(resp.Documents, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, resp)
}

// Chunks returns the stored chunks ordered by index. A document that exists
// but has no chunks yields an empty list.
func (h *DocumentHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	if _, err := h.docs.GetDocument(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	chunks, err := h.docs.ListChunks(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		resp = append(resp, ChunkResponse{Index: c.Index, Text: c.Text})
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *DocumentHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	job, err := h.reindex.Enqueue(r.Context(), id, domain.ReindexReasonManual)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, &ReindexResponse{
		JobID:      job.ID,
		DocumentID: job.DocumentID,
		Status:     string(job.Status),
	})
}
