package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/lulu/internal/api/middleware"
	"github.com/felixgeelhaar/lulu/internal/domain"
)

// maxBodyBytes bounds request bodies; submitted code is the largest payload
const maxBodyBytes = 1 << 20

// Tutor is the tutoring service the handlers call
type Tutor interface {
	ValidateCode(ctx context.Context, req domain.CodeValidationRequest) (domain.CodeValidationResult, error)
	GenerateQuestions(ctx context.Context, req domain.QuestionRequest) (domain.QuestionSet, error)
	Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
	ExplainConcept(ctx context.Context, req domain.ConceptRequest) (domain.ConceptExplanation, error)
}

// TutorHandler handles the model-backed tutoring endpoints
type TutorHandler struct {
	tutor Tutor
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(tutor Tutor) *TutorHandler {
	return &TutorHandler{tutor: tutor}
}

// ValidateCode handles POST /api/v1/gemini/validate-code
func (h *TutorHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		Unauthorized(w, r, "Usuario no autenticado")
		return
	}

	var req domain.CodeValidationRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" || req.ExerciseID <= 0 || req.Language == "" {
		BadRequest(w, r, "Faltan campos requeridos: codigo_enviado, ejercicio_id, lenguaje")
		return
	}
	req.UserID = userID

	result, err := h.tutor.ValidateCode(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err, "Error al validar el código")
		return
	}
	WriteSuccess(w, result)
}

// GenerateQuestions handles POST /api/v1/gemini/generate-questions
func (h *TutorHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req domain.QuestionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SubtopicID <= 0 {
		BadRequest(w, r, "Falta campo requerido: subtema_id")
		return
	}
	req.UserID, _ = middleware.GetUserID(r.Context())

	set, err := h.tutor.GenerateQuestions(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err, "Error al generar preguntas")
		return
	}
	WriteSuccess(w, set)
}

// Chat handles POST /api/v1/gemini/chat
func (h *TutorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		BadRequest(w, r, "Falta campo requerido: mensaje")
		return
	}
	req.UserID, _ = middleware.GetUserID(r.Context())

	resp, err := h.tutor.Chat(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err, "Error en el chat")
		return
	}
	WriteSuccess(w, resp)
}

// ExplainConcept handles POST /api/v1/gemini/explicar-concepto
func (h *TutorHandler) ExplainConcept(w http.ResponseWriter, r *http.Request) {
	var req domain.ConceptRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Concept) == "" {
		BadRequest(w, r, "Falta campo requerido: concepto")
		return
	}
	req.UserID, _ = middleware.GetUserID(r.Context())

	exp, err := h.tutor.ExplainConcept(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err, "Error al explicar el concepto")
		return
	}
	WriteSuccess(w, exp)
}

// decode reads a JSON body into v, writing a 400 and returning false on failure
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, r, http.StatusBadRequest,
			NewAPIError("BAD_REQUEST", "Cuerpo de la solicitud inválido").WithCause(err))
		return false
	}
	return true
}
