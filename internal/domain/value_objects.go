package domain

import (
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// RequestKind - What a generation request is for
// -----------------------------------------------------------------------------

// RequestKind identifies the use case behind a model call. It is the key for
// generation defaults and for usage statistics.
type RequestKind string

const (
	KindCodeValidation     RequestKind = "code_validation"
	KindQuestionGeneration RequestKind = "question_generation"
	KindChat               RequestKind = "chat"
	KindExplainConcept     RequestKind = "explain_concept"
)

// AllRequestKinds returns every known request kind in a stable order
func AllRequestKinds() []RequestKind {
	return []RequestKind{KindCodeValidation, KindQuestionGeneration, KindChat, KindExplainConcept}
}

// String returns the string representation
func (k RequestKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is known
func (k RequestKind) IsValid() bool {
	for _, known := range AllRequestKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Difficulty - Question difficulty level
// -----------------------------------------------------------------------------

// Difficulty is the difficulty level of a generated question
type Difficulty string

const (
	DifficultyBasic        Difficulty = "basica"
	DifficultyIntermediate Difficulty = "intermedia"
	DifficultyAdvanced     Difficulty = "avanzada"
)

// ParseDifficulty accepts the canonical values plus accented and mixed-case
// spellings ("Básica", "INTERMEDIA").
func ParseDifficulty(s string) (Difficulty, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(normalized)

	switch Difficulty(normalized) {
	case DifficultyBasic, DifficultyIntermediate, DifficultyAdvanced:
		return Difficulty(normalized), nil
	case "":
		return DifficultyIntermediate, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, s)
}

// String returns the string representation
func (d Difficulty) String() string {
	return string(d)
}

// -----------------------------------------------------------------------------
// Verdict - Outcome of a code validation
// -----------------------------------------------------------------------------

// Verdict is the model's judgement of submitted code
type Verdict string

const (
	VerdictCorrect   Verdict = "correcto"
	VerdictIncorrect Verdict = "incorrecto"
	VerdictError     Verdict = "error"
)

// ParseVerdict maps model output to a verdict; anything unrecognised is an error verdict
func ParseVerdict(s string) Verdict {
	switch Verdict(strings.ToLower(strings.TrimSpace(s))) {
	case VerdictCorrect:
		return VerdictCorrect
	case VerdictIncorrect:
		return VerdictIncorrect
	default:
		return VerdictError
	}
}

// String returns the string representation
func (v Verdict) String() string {
	return string(v)
}

// FeedbackKindCodeValidation is the stored kind of validation feedback records
const FeedbackKindCodeValidation = "validacion_codigo"

// QuestionTypeMultipleChoice is the stored type of generated questions
const QuestionTypeMultipleChoice = "opcion_multiple"
