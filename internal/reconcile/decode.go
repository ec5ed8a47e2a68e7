package reconcile

import (
	"fmt"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// Defaults filled into question fields the model left out
const (
	DefaultOptionExplanation   = "Sin explicación"
	DefaultCorrectFeedback     = "¡Correcto!"
	DefaultIncorrectFeedback   = "Incorrecto."
	DefaultDetailedExplanation = "Ver retroalimentación"
	DefaultQuestionPoints      = 10
)

// Defaults filled into validation fields the model left out
const (
	DefaultValidationFeedback = "Se encontraron problemas en el código. Por favor, revisa la lógica implementada."
)

// Questions reconciles a question generation response. The top-level
// "preguntas" array is required; every leaf field gets a default.
func Questions(raw string) ([]domain.GeneratedQuestion, error) {
	root, err := Extract(raw)
	if err != nil {
		return nil, err
	}

	items, ok := root.Get("preguntas").Items()
	if !ok {
		return nil, &MissingFieldError{Field: "preguntas", Want: "array"}
	}

	questions := make([]domain.GeneratedQuestion, 0, len(items))
	for i, item := range items {
		questions = append(questions, decodeQuestion(i, item))
	}
	return questions, nil
}

func decodeQuestion(index int, v Value) domain.GeneratedQuestion {
	q := domain.GeneratedQuestion{
		Text:              v.Get("texto").StringOr(fmt.Sprintf("Pregunta %d", index+1)),
		Difficulty:        decodeDifficulty(v.Get("dificultad")),
		CorrectFeedback:   v.Get("retroalimentacion_correcta").StringOr(DefaultCorrectFeedback),
		IncorrectFeedback: v.Get("retroalimentacion_incorrecta").StringOr(DefaultIncorrectFeedback),
		Points:            v.Get("puntos").IntOr(DefaultQuestionPoints),
	}

	detailed := v.Get("retroalimentacion_correcta").StringOr(DefaultDetailedExplanation)
	q.DetailedExplanation = v.Get("explicacion_detallada").StringOr(detailed)

	// Options stay nil when the model sent no array so validation can tell
	// a missing list from an empty one.
	if opts, ok := v.Get("opciones").Items(); ok {
		q.Options = make([]domain.AnswerOption, 0, len(opts))
		for j, o := range opts {
			q.Options = append(q.Options, domain.AnswerOption{
				Text:        o.Get("texto").StringOr(fmt.Sprintf("Opción %d", j+1)),
				IsCorrect:   o.Get("es_correcta").Truthy(),
				Explanation: o.Get("explicacion").StringOr(DefaultOptionExplanation),
			})
		}
	}
	return q
}

func decodeDifficulty(v Value) domain.Difficulty {
	d, err := domain.ParseDifficulty(v.StringOr(""))
	if err != nil {
		return domain.DifficultyIntermediate
	}
	return d
}

// Validation reconciles a code validation response. No field is required;
// an unusable verdict degrades to an error result with generic feedback.
func Validation(raw string) (domain.ValidationVerdict, error) {
	root, err := Extract(raw)
	if err != nil {
		return domain.ValidationVerdict{}, err
	}

	return domain.ValidationVerdict{
		Result:       domain.ParseVerdict(root.Get("resultado").StringOr("")),
		Errors:       root.Get("errores_encontrados").Strings(),
		PassedCases:  root.Get("casos_prueba_pasados").IntOr(0),
		TotalCases:   root.Get("casos_prueba_totales").IntOr(0),
		Feedback:     root.Get("retroalimentacion_educativa").StringOr(DefaultValidationFeedback),
		Improvements: root.Get("sugerencias_mejora").Strings(),
	}, nil
}

// ValidateQuestions enforces the invariants generated questions must satisfy
// before they are persisted. It returns non-fatal warnings for questions whose
// option count is not four.
func ValidateQuestions(questions []domain.GeneratedQuestion) (warnings []string, err error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	for i := range questions {
		q := &questions[i]
		if err := q.Validate(); err != nil {
			return warnings, fmt.Errorf("question %d: %w", i+1, err)
		}
		if len(q.Options) != 4 {
			warnings = append(warnings, fmt.Sprintf("question %d has %d options, expected 4", i+1, len(q.Options)))
		}
	}
	return warnings, nil
}
