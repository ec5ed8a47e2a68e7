package domain

import "fmt"

// Topic is the course topic a subtopic belongs to
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
}

// Subtopic is the content unit questions are generated for
type Subtopic struct {
	ID          int64  `json:"id"`
	TopicID     int64  `json:"tema_id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
	Detail      string `json:"contenido_detalle,omitempty"`
	Topic       *Topic `json:"tema,omitempty"`
}

// TopicName returns the parent topic name or "N/A" when the topic is not loaded
func (s *Subtopic) TopicName() string {
	if s.Topic == nil || s.Topic.Name == "" {
		return "N/A"
	}
	return s.Topic.Name
}

// ContentSummary returns the first 200 characters of the detailed content,
// falling back to the description.
func (s *Subtopic) ContentSummary() string {
	if s.Detail == "" {
		return s.Description
	}
	runes := []rune(s.Detail)
	if len(runes) > 200 {
		return string(runes[:200])
	}
	return s.Detail
}

// AnswerOption is one choice of a multiple-choice question
type AnswerOption struct {
	Text        string `json:"texto"`
	IsCorrect   bool   `json:"es_correcta"`
	Explanation string `json:"explicacion"`
}

// GeneratedQuestion is a multiple-choice question produced by the model
type GeneratedQuestion struct {
	Text                string         `json:"texto"`
	Options             []AnswerOption `json:"opciones"`
	Difficulty          Difficulty     `json:"dificultad"`
	CorrectFeedback     string         `json:"retroalimentacion_correcta"`
	IncorrectFeedback   string         `json:"retroalimentacion_incorrecta"`
	DetailedExplanation string         `json:"explicacion_detallada"`
	Points              int            `json:"puntos"`
}

// CorrectOptions returns how many options are marked correct
func (q *GeneratedQuestion) CorrectOptions() int {
	n := 0
	for _, o := range q.Options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

// Validate checks the invariants a question must satisfy before it is stored.
// The option count is not checked here; callers only warn about it.
func (q *GeneratedQuestion) Validate() error {
	if q.Text == "" {
		return ErrQuestionWithoutText
	}
	if q.Options == nil {
		return ErrQuestionWithoutOptions
	}
	if n := q.CorrectOptions(); n != 1 {
		return fmt.Errorf("%w (has %d)", ErrCorrectOptionCount, n)
	}
	return nil
}

// QuestionRequest asks for a batch of questions on a subtopic
type QuestionRequest struct {
	SubtopicID int64      `json:"subtema_id"`
	Count      int        `json:"cantidad"`
	Difficulty Difficulty `json:"dificultad"`
	UserID     int64      `json:"-"`
}

// Validate normalises defaults and checks bounds
func (r *QuestionRequest) Validate() error {
	if r.SubtopicID <= 0 {
		return fmt.Errorf("%w: subtema_id is required", ErrInvalidInput)
	}
	if r.Count == 0 {
		r.Count = 5
	}
	if r.Count < 1 || r.Count > 20 {
		return fmt.Errorf("%w: cantidad must be between 1 and 20", ErrInvalidInput)
	}
	d, err := ParseDifficulty(string(r.Difficulty))
	if err != nil {
		return err
	}
	r.Difficulty = d
	return nil
}

// QuestionSet is the result of a question generation request
type QuestionSet struct {
	Questions      []GeneratedQuestion `json:"preguntas"`
	SubtopicID     int64               `json:"subtema_id"`
	GeneratedCount int                 `json:"cantidad_generada"`
}
