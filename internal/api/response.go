package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/llm"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// CodePayloadTooLarge marks uploads rejected by the body limit.
const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// TooLarge writes a 413 with CodePayloadTooLarge.
func TooLarge(w http.ResponseWriter) {
	JSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large", Code: CodePayloadTooLarge})
}

// DomainErrorToHTTP maps domain and completion errors to HTTP status codes.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var routerErr *llm.RouterError
	if errors.As(err, &routerErr) {
		return http.StatusBadGateway
	}

	switch domain.CodeOf(err) {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists, domain.ErrCodeIncomplete:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeNoContent:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeTransientBackend, domain.ErrCodeEmbedding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes err with the status DomainErrorToHTTP picks. Errors that
// are not domain or completion errors are reported without their details.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var routerErr *llm.RouterError
	if errors.As(err, &routerErr) {
		JSON(w, status, ErrorResponse{Error: routerErr.Error(), Code: "COMPLETION_ERROR"})
		return
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		JSON(w, status, ErrorResponse{Error: de.Message, Code: de.Code})
		return
	}

	Error(w, status, "internal server error")
}
