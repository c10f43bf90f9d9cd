package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/ragdoc/internal/api"
	"github.com/cloo-solutions/ragdoc/internal/service"
)

type RetrievalService interface {
	Answer(ctx context.Context, question string, topK int) (*service.Answer, error)
}

type QueryHandler struct {
	svc RetrievalService
}

func NewQueryHandler(svc RetrievalService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.svc.Answer(r.Context(), req.Question, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if answer.Sources == nil {
		answer.Sources = []service.Source{}
	}
	api.Success(w, http.StatusOK, answer)
}
