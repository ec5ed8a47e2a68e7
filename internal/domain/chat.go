package domain

import (
	"fmt"
	"strings"
)

// ChatRole is the author of a chat turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// HistoryWindow is how many previous turns are sent to the model
const HistoryWindow = 5

// ChatMessage is one turn of the conversation history
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatContext is where the learner currently is in the course
type ChatContext struct {
	Topic      string `json:"tema_actual,omitempty"`
	Subtopic   string `json:"subtema_actual,omitempty"`
	ExerciseID int64  `json:"ejercicio_actual,omitempty"`
}

// ChatRequest is a learner message to the tutor
type ChatRequest struct {
	Message string        `json:"mensaje"`
	History []ChatMessage `json:"historial,omitempty"`
	Context *ChatContext  `json:"contexto,omitempty"`
	UserID  int64         `json:"-"`
}

// Validate checks the required fields
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: mensaje is required", ErrInvalidInput)
	}
	return nil
}

// RecentHistory returns at most the last HistoryWindow turns
func (r *ChatRequest) RecentHistory() []ChatMessage {
	if len(r.History) <= HistoryWindow {
		return r.History
	}
	return r.History[len(r.History)-HistoryWindow:]
}

// ChatResponse is the tutor's reply
type ChatResponse struct {
	Reply       string   `json:"respuesta"`
	ContextUsed bool     `json:"contexto_usado"`
	Suggestions []string `json:"sugerencias,omitempty"`
}

// ChatFallbackReply is returned when the tutor could not answer
const ChatFallbackReply = "Lo siento, no pude procesar tu pregunta en este momento. ¿Podrías reformularla?"

// ConceptRequest asks the tutor to explain a concept
type ConceptRequest struct {
	Concept  string `json:"concepto"`
	Topic    string `json:"tema,omitempty"`
	Subtopic string `json:"subtema,omitempty"`
	UserID   int64  `json:"-"`
}

// Validate checks the required fields
func (r *ConceptRequest) Validate() error {
	if strings.TrimSpace(r.Concept) == "" {
		return fmt.Errorf("%w: concepto is required", ErrInvalidInput)
	}
	return nil
}

// ConceptExplanation is the tutor's explanation of a concept
type ConceptExplanation struct {
	Concept     string `json:"concepto"`
	Explanation string `json:"explicacion"`
}
