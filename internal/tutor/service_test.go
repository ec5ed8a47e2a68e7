package tutor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/lulu/internal/cache"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/llm"
	"github.com/felixgeelhaar/lulu/internal/quota"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// fakeGenerator returns canned model output
type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	prompts  []string
	opts     []llm.Options

	entered chan struct{}
	release chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type mockSubtopics struct {
	subtopics map[int64]*domain.Subtopic
}

func (m *mockSubtopics) GetSubtopic(ctx context.Context, id int64) (*domain.Subtopic, error) {
	s, ok := m.subtopics[id]
	if !ok {
		return nil, domain.ErrSubtopicNotFound
	}
	return s, nil
}

type mockQuestionRepo struct {
	questions int
	options   int
	err       error
}

func (m *mockQuestionRepo) SaveQuestions(ctx context.Context, subtopicID int64, qs []domain.GeneratedQuestion) ([]domain.StoredQuestion, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.StoredQuestion, 0, len(qs))
	for _, q := range qs {
		m.questions++
		m.options += len(q.Options)
		out = append(out, domain.StoredQuestion{ID: int64(m.questions), SubtopicID: subtopicID, Question: q})
	}
	return out, nil
}

type denyAll struct{}

func (denyAll) Admit(time.Time) quota.Decision {
	return quota.Decision{Reason: quota.ReasonMinute, RetryAfterSeconds: 42, Limit: 15, Current: 15}
}

type countingObserver struct {
	denied     []string
	reconciled int
}

func (o *countingObserver) QuotaDenied(window string)          { o.denied = append(o.denied, window) }
func (o *countingObserver) ReconcileFailed(domain.RequestKind) { o.reconciled++ }

type fixture struct {
	svc      *Service
	gen      *fakeGenerator
	memory   *cache.Memory
	monitor  *usage.Monitor
	repo     *mockQuestionRepo
	observer *countingObserver
}

func newFixture(t *testing.T, gen *fakeGenerator) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	memory := cache.NewMemory(7, cache.WithLogger(logger))
	monitor := usage.NewMonitor(usage.Config{}, usage.WithLogger(logger))
	repo := &mockQuestionRepo{}
	obs := &countingObserver{}

	svc := NewService(Deps{
		Generator:     gen,
		Limiter:       quota.NewLimiter(100, 1000, logger),
		Usage:         monitor,
		CodeCache:     cache.NewTiered(memory, nil, "test-model", logger),
		QuestionCache: memory,
		Subtopics: &mockSubtopics{subtopics: map[int64]*domain.Subtopic{
			7: {ID: 7, Name: "Funciones", Detail: "Definición y uso de funciones", Topic: &domain.Topic{Name: "Fundamentos"}},
		}},
		Questions: repo,
		Observer:  obs,
		Logger:    logger,
	})
	return &fixture{svc: svc, gen: gen, memory: memory, monitor: monitor, repo: repo, observer: obs}
}

func questionsJSON(n int, difficulty string) string {
	var qs []string
	for i := 1; i <= n; i++ {
		qs = append(qs, fmt.Sprintf(`{
			"texto": "Pregunta %d",
			"opciones": [
				{"texto": "A", "es_correcta": true, "explicacion": "Sí"},
				{"texto": "B", "es_correcta": false, "explicacion": "No"},
				{"texto": "C", "es_correcta": false, "explicacion": "No"},
				{"texto": "D", "es_correcta": false, "explicacion": "No"}
			],
			"dificultad": %q,
			"retroalimentacion_correcta": "Bien",
			"retroalimentacion_incorrecta": "Repasa",
			"explicacion_detallada": "Porque sí",
			"puntos": 10
		}`, i, difficulty))
	}
	return "```json\n{\"preguntas\": [" + strings.Join(qs, ",") + "]}\n```"
}
