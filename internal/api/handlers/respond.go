package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/lulu/internal/api/middleware"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/llm"
	"github.com/felixgeelhaar/lulu/internal/quota"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// SuccessResponse is the JSON structure for successful responses
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// WriteError writes an error response and logs it at a level matching the status
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	logAttrs := []any{
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
	}
	if apiErr.cause != nil {
		logAttrs = append(logAttrs, "cause", apiErr.cause.Error())
	}

	if statusCode >= 500 {
		slog.Error("api error", logAttrs...)
	} else if statusCode >= 400 {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, statusCode, ErrorResponse{Error: apiErr})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteSuccess writes a 200 response wrapping data in the success envelope
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// BadRequest writes a 400 with the given message
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", message))
}

// Unauthorized writes a 401 with the given message
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, NewAPIError("UNAUTHORIZED", message))
}

// WriteServiceError maps an error returned by the tutoring service onto a
// status code and error body.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var exceeded *quota.ExceededError
	var genErr *llm.GenerationError

	switch {
	case errors.As(err, &exceeded):
		w.Header().Set("Retry-After", strconv.Itoa(exceeded.RetryAfterSeconds))
		WriteError(w, r, http.StatusTooManyRequests,
			NewAPIError("QUOTA_EXCEEDED", "Límite de solicitudes a la IA alcanzado. Intenta de nuevo en "+
				strconv.Itoa(exceeded.RetryAfterSeconds)+" segundos.").
				WithDetails(map[string]any{
					"motivo":      exceeded.Reason,
					"retry_after": exceeded.RetryAfterSeconds,
					"limite":      exceeded.Limit,
					"actual":      exceeded.Current,
				}).WithCause(err))

	case errors.Is(err, domain.ErrInvalidInput):
		WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", err.Error()).WithCause(err))

	case errors.Is(err, domain.ErrSubtopicNotFound):
		WriteError(w, r, http.StatusNotFound, NewAPIError("NOT_FOUND", "Subtema no encontrado").WithCause(err))

	case errors.Is(err, domain.ErrInvalidAIResponse):
		WriteError(w, r, http.StatusBadGateway, NewAPIError("INVALID_AI_RESPONSE", message).WithCause(err))

	case errors.As(err, &genErr):
		WriteError(w, r, http.StatusBadGateway, NewAPIError("GENERATION_FAILED", message).WithCause(err))

	default:
		WriteError(w, r, http.StatusInternalServerError, NewAPIError("INTERNAL_ERROR", message).WithCause(err))
	}
}
