package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidationVerdict_Score(t *testing.T) {
	tests := []struct {
		name    string
		verdict ValidationVerdict
		want    int
	}{
		{"correct", ValidationVerdict{Result: VerdictCorrect}, 100},
		{"correct ignores cases", ValidationVerdict{Result: VerdictCorrect, PassedCases: 1, TotalCases: 4}, 100},
		{"incorrect partial", ValidationVerdict{Result: VerdictIncorrect, PassedCases: 2, TotalCases: 4}, 50},
		{"incorrect rounds", ValidationVerdict{Result: VerdictIncorrect, PassedCases: 2, TotalCases: 3}, 67},
		{"incorrect none passed", ValidationVerdict{Result: VerdictIncorrect, PassedCases: 0, TotalCases: 4}, 0},
		{"incorrect zero total", ValidationVerdict{Result: VerdictIncorrect, PassedCases: 2, TotalCases: 0}, 0},
		{"error", ValidationVerdict{Result: VerdictError, PassedCases: 3, TotalCases: 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.verdict.Score(); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeValidationRequest_Validate(t *testing.T) {
	valid := CodeValidationRequest{Code: "print(1)", ExerciseID: 3, Language: "python"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	missingCode := valid
	missingCode.Code = "   "
	if err := missingCode.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank code: error = %v, want ErrInvalidInput", err)
	}

	missingExercise := valid
	missingExercise.ExerciseID = 0
	if err := missingExercise.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing exercise: error = %v, want ErrInvalidInput", err)
	}
}

func TestCodeValidationRequest_TestCaseCount(t *testing.T) {
	r := CodeValidationRequest{TestCases: json.RawMessage(`[{"in":1},{"in":2}]`)}
	if got := r.TestCaseCount(); got != 2 {
		t.Errorf("TestCaseCount() = %d, want 2", got)
	}

	r.TestCases = json.RawMessage(`{"in":1}`)
	if got := r.TestCaseCount(); got != 0 {
		t.Errorf("TestCaseCount() on object = %d, want 0", got)
	}
}

func TestFallbackValidationResult(t *testing.T) {
	res := FallbackValidationResult(errors.New("boom"))
	if res.Result != VerdictError || res.Points != 0 {
		t.Errorf("unexpected fallback %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "boom" {
		t.Errorf("Errors = %v, want [boom]", res.Errors)
	}
	if res.Feedback != ValidationFallbackFeedback {
		t.Errorf("Feedback = %q", res.Feedback)
	}
}
