package tutor

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/lulu/internal/cache"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/quota"
)

func TestGenerateQuestions_EndToEnd(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: questionsJSON(5, "intermedia")})

	got, err := f.svc.GenerateQuestions(context.Background(), domain.QuestionRequest{
		SubtopicID: 7,
		Count:      5,
		Difficulty: domain.DifficultyIntermediate,
	})
	if err != nil {
		t.Fatalf("GenerateQuestions() error = %v", err)
	}

	if f.gen.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", f.gen.callCount())
	}
	if f.repo.questions != 5 || f.repo.options != 20 {
		t.Errorf("persisted %d questions / %d options, want 5 / 20", f.repo.questions, f.repo.options)
	}
	if cache.QuestionsKey(7, domain.DifficultyIntermediate) != "questions_7_intermedia" {
		t.Fatal("unexpected cache key format")
	}
	if pool, ok := f.memory.LookupQuestions(7, 5, domain.DifficultyIntermediate); !ok || len(pool) != 5 {
		t.Errorf("cache pool = %d questions, found %v", len(pool), ok)
	}
	if len(got.Questions) != 5 || got.GeneratedCount != 5 || got.SubtopicID != 7 {
		t.Errorf("result = %d questions, generated %d, subtopic %d", len(got.Questions), got.GeneratedCount, got.SubtopicID)
	}
	if f.gen.opts[0].Kind != domain.KindQuestionGeneration {
		t.Errorf("generation kind = %s", f.gen.opts[0].Kind)
	}

	stats := f.monitor.StatsByKind()[domain.KindQuestionGeneration]
	if stats.Total != 1 || stats.API != 1 {
		t.Errorf("usage stats = %+v", stats)
	}
}

func TestGenerateQuestions_ServedFromCache(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: questionsJSON(5, "intermedia")})
	ctx := context.Background()
	req := domain.QuestionRequest{SubtopicID: 7, Count: 5}

	if _, err := f.svc.GenerateQuestions(ctx, req); err != nil {
		t.Fatalf("first GenerateQuestions() error = %v", err)
	}

	got, err := f.svc.GenerateQuestions(ctx, domain.QuestionRequest{SubtopicID: 7, Count: 3})
	if err != nil {
		t.Fatalf("cached GenerateQuestions() error = %v", err)
	}
	if len(got.Questions) != 3 || got.GeneratedCount != 3 {
		t.Errorf("cached result = %d questions, generated %d", len(got.Questions), got.GeneratedCount)
	}
	if f.gen.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", f.gen.callCount())
	}

	// More than the pool holds goes back to the model.
	if _, err := f.svc.GenerateQuestions(ctx, domain.QuestionRequest{SubtopicID: 7, Count: 8}); err != nil {
		t.Fatalf("GenerateQuestions() error = %v", err)
	}
	if f.gen.callCount() != 2 {
		t.Errorf("generator called %d times, want 2", f.gen.callCount())
	}
	if pool, ok := f.memory.LookupQuestions(7, 10, domain.DifficultyIntermediate); !ok || len(pool) != 10 {
		t.Errorf("pool should have grown to 10, got %d", len(pool))
	}

	stats := f.monitor.StatsByKind()[domain.KindQuestionGeneration]
	if stats.Cache != 1 {
		t.Errorf("cache hits = %d, want 1", stats.Cache)
	}
}

func TestGenerateQuestions_ReturnsRequestedSlice(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: questionsJSON(6, "intermedia")})

	got, err := f.svc.GenerateQuestions(context.Background(), domain.QuestionRequest{SubtopicID: 7, Count: 4})
	if err != nil {
		t.Fatalf("GenerateQuestions() error = %v", err)
	}
	if len(got.Questions) != 4 || got.GeneratedCount != 6 {
		t.Errorf("got %d questions, generated %d; want 4, 6", len(got.Questions), got.GeneratedCount)
	}
}

func TestGenerateQuestions_PersistenceFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: questionsJSON(5, "intermedia")})
	f.repo.err = errors.New("connection refused")

	got, err := f.svc.GenerateQuestions(context.Background(), domain.QuestionRequest{SubtopicID: 7, Count: 5})
	if err != nil {
		t.Fatalf("GenerateQuestions() error = %v", err)
	}
	if len(got.Questions) != 5 {
		t.Errorf("got %d questions, want 5", len(got.Questions))
	}
	if _, ok := f.memory.LookupQuestions(7, 5, domain.DifficultyIntermediate); !ok {
		t.Error("questions should still be cached")
	}
}

func TestGenerateQuestions_Failures(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		req     domain.QuestionRequest
		wantErr error
	}{
		{
			name:    "unknown subtopic",
			gen:     &fakeGenerator{response: questionsJSON(5, "intermedia")},
			req:     domain.QuestionRequest{SubtopicID: 99, Count: 5},
			wantErr: domain.ErrSubtopicNotFound,
		},
		{
			name:    "no json",
			gen:     &fakeGenerator{response: "Lo siento, no puedo."},
			req:     domain.QuestionRequest{SubtopicID: 7, Count: 5},
			wantErr: domain.ErrInvalidAIResponse,
		},
		{
			name:    "missing array",
			gen:     &fakeGenerator{response: `{"items": []}`},
			req:     domain.QuestionRequest{SubtopicID: 7, Count: 5},
			wantErr: domain.ErrInvalidAIResponse,
		},
		{
			name: "two correct options",
			gen: &fakeGenerator{response: `{"preguntas": [{"texto": "Q", "opciones": [
				{"texto": "A", "es_correcta": true}, {"texto": "B", "es_correcta": true},
				{"texto": "C", "es_correcta": false}, {"texto": "D", "es_correcta": false}]}]}`},
			req:     domain.QuestionRequest{SubtopicID: 7, Count: 1},
			wantErr: domain.ErrCorrectOptionCount,
		},
		{
			name:    "invalid count",
			gen:     &fakeGenerator{},
			req:     domain.QuestionRequest{SubtopicID: 7, Count: 50},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "model failure",
			gen:     &fakeGenerator{err: errors.New("boom")},
			req:     domain.QuestionRequest{SubtopicID: 7, Count: 5},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.gen)

			_, err := f.svc.GenerateQuestions(context.Background(), tt.req)
			if err == nil {
				t.Fatal("GenerateQuestions() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if f.repo.questions != 0 {
				t.Error("nothing should be persisted on failure")
			}
		})
	}
}

func TestGenerateQuestions_QuotaDenied(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: questionsJSON(5, "intermedia")})
	f.svc.limiter = denyAll{}

	_, err := f.svc.GenerateQuestions(context.Background(), domain.QuestionRequest{SubtopicID: 7, Count: 5})

	var qe *quota.ExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v, want *quota.ExceededError", err)
	}
	if qe.RetryAfterSeconds != 42 {
		t.Errorf("RetryAfterSeconds = %d", qe.RetryAfterSeconds)
	}
	if f.gen.callCount() != 0 {
		t.Error("denied request reached the model")
	}
	if len(f.observer.denied) != 1 || f.observer.denied[0] != "minute" {
		t.Errorf("observer denials = %v", f.observer.denied)
	}
}
