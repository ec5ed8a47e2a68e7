package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MaxPoints is the score of a fully correct submission
const MaxPoints = 100

// CodeValidationRequest is a learner submission to be judged
type CodeValidationRequest struct {
	Code       string          `json:"codigo_enviado"`
	ExerciseID int64           `json:"ejercicio_id"`
	UserID     int64           `json:"usuario_id"`
	TestCases  json.RawMessage `json:"casos_prueba,omitempty"`
	Language   string          `json:"lenguaje"`
	Statement  string          `json:"enunciado,omitempty"`
}

// Validate checks the required fields
func (r *CodeValidationRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("%w: codigo_enviado is required", ErrInvalidInput)
	}
	if r.ExerciseID <= 0 {
		return fmt.Errorf("%w: ejercicio_id is required", ErrInvalidInput)
	}
	if r.Language == "" {
		return fmt.Errorf("%w: lenguaje is required", ErrInvalidInput)
	}
	return nil
}

// TestCaseCount returns the number of test cases when they are a JSON array
func (r *CodeValidationRequest) TestCaseCount() int {
	var cases []json.RawMessage
	if err := json.Unmarshal(r.TestCases, &cases); err != nil {
		return 0
	}
	return len(cases)
}

// ValidationVerdict is the reconciled model judgement of a submission
type ValidationVerdict struct {
	Result       Verdict  `json:"resultado"`
	Errors       []string `json:"errores_encontrados"`
	PassedCases  int      `json:"casos_prueba_pasados"`
	TotalCases   int      `json:"casos_prueba_totales"`
	Feedback     string   `json:"retroalimentacion_educativa"`
	Improvements []string `json:"sugerencias_mejora"`
}

// Score computes the points earned: full marks when correct, the share of
// passed cases when incorrect with case data, zero otherwise.
func (v ValidationVerdict) Score() int {
	switch v.Result {
	case VerdictCorrect:
		return MaxPoints
	case VerdictIncorrect:
		if v.PassedCases > 0 && v.TotalCases > 0 {
			return int(math.Round(MaxPoints * float64(v.PassedCases) / float64(v.TotalCases)))
		}
	}
	return 0
}

// CodeValidationResult is what the learner receives
type CodeValidationResult struct {
	Result       Verdict  `json:"resultado"`
	Points       int      `json:"puntos_obtenidos"`
	Feedback     string   `json:"retroalimentacion_llm"`
	Errors       []string `json:"errores_encontrados"`
	PassedCases  int      `json:"casos_prueba_pasados"`
	TotalCases   int      `json:"casos_prueba_totales"`
	Improvements []string `json:"sugerencias_mejora,omitempty"`
}

// ValidationFallbackFeedback is shown when a submission could not be judged
const ValidationFallbackFeedback = "Hubo un error al procesar tu código. Por favor, intenta nuevamente."

// FallbackValidationResult is the safe result returned when judging fails
func FallbackValidationResult(cause error) CodeValidationResult {
	errs := []string{}
	if cause != nil {
		errs = append(errs, cause.Error())
	}
	return CodeValidationResult{
		Result:   VerdictError,
		Points:   0,
		Feedback: ValidationFallbackFeedback,
		Errors:   errs,
	}
}

// NewCodeValidationResult builds the learner-facing result from a verdict
func NewCodeValidationResult(v ValidationVerdict) CodeValidationResult {
	return CodeValidationResult{
		Result:       v.Result,
		Points:       v.Score(),
		Feedback:     v.Feedback,
		Errors:       v.Errors,
		PassedCases:  v.PassedCases,
		TotalCases:   v.TotalCases,
		Improvements: v.Improvements,
	}
}
