// Package prompt renders the model instructions for each tutoring use case.
// Builders are pure: the same input always yields the same prompt.
package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"))

// ConceptMessage is the chat message used to ask for a concept explanation
func ConceptMessage(concept string) string {
	return "Explícame el concepto: " + concept
}

type codeValidationData struct {
	Language      string
	Code          string
	Statement     string
	TestCases     string
	TestCaseCount int
}

// CodeValidation builds the prompt that asks the model to judge a submission
func CodeValidation(req *domain.CodeValidationRequest) (string, error) {
	statement := strings.TrimSpace(req.Statement)
	if statement == "" {
		statement = "No especificado"
	}

	return render("code_validation.tmpl", codeValidationData{
		Language:      req.Language,
		Code:          req.Code,
		Statement:     statement,
		TestCases:     prettyJSON(req.TestCases),
		TestCaseCount: req.TestCaseCount(),
	})
}

type questionsData struct {
	Count      int
	Topic      string
	Subtopic   string
	Content    string
	Difficulty string
}

// Questions builds the prompt that asks for count multiple-choice questions
// about subtopic.
func Questions(subtopic *domain.Subtopic, count int, difficulty domain.Difficulty) (string, error) {
	if subtopic == nil {
		return "", fmt.Errorf("%w: subtopic is required", domain.ErrInvalidInput)
	}
	if difficulty == "" {
		difficulty = domain.DifficultyIntermediate
	}

	return render("questions.tmpl", questionsData{
		Count:      count,
		Topic:      subtopic.TopicName(),
		Subtopic:   subtopic.Name,
		Content:    subtopic.ContentSummary(),
		Difficulty: string(difficulty),
	})
}

type historyLine struct {
	Speaker string
	Content string
}

type chatData struct {
	Context *domain.ChatContext
	History []historyLine
	Message string
}

// Chat builds the tutor prompt from the persona, the learner context, the
// recent history and the current message.
func Chat(req *domain.ChatRequest) (string, error) {
	recent := req.RecentHistory()
	history := make([]historyLine, 0, len(recent))
	for _, m := range recent {
		speaker := "LULU"
		if m.Role == domain.ChatRoleUser {
			speaker = "Estudiante"
		}
		history = append(history, historyLine{Speaker: speaker, Content: m.Content})
	}

	return render("chat.tmpl", chatData{
		Context: req.Context,
		History: history,
		Message: req.Message,
	})
}

func render(name string, data any) (string, error) {
	var b bytes.Buffer
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

func prettyJSON(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "[]"
	}
	var b bytes.Buffer
	if err := json.Indent(&b, raw, "", "  "); err != nil {
		return string(raw)
	}
	return b.String()
}
