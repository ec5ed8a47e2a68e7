package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/storage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSubtopic(t *testing.T, s *Store) *domain.Subtopic {
	t.Helper()
	ctx := context.Background()
	topic := &domain.Topic{Name: "Fundamentos"}
	if err := s.SaveTopic(ctx, topic); err != nil {
		t.Fatalf("SaveTopic() error = %v", err)
	}
	sub := &domain.Subtopic{TopicID: topic.ID, Name: "Funciones", Description: "Definir funciones", Detail: "def f(x): return x"}
	if err := s.SaveSubtopic(ctx, sub); err != nil {
		t.Fatalf("SaveSubtopic() error = %v", err)
	}
	return sub
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, nil); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	v, err := storage.Version(ctx, db.DB)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != 2 {
		t.Errorf("Version() = %d; want 2", v)
	}
}

func TestStore_GetSubtopic(t *testing.T) {
	s := NewStore(openTestDB(t))
	sub := seedSubtopic(t, s)

	got, err := s.GetSubtopic(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetSubtopic() error = %v", err)
	}
	if got.Name != "Funciones" {
		t.Errorf("Name = %q; want %q", got.Name, "Funciones")
	}
	if got.TopicName() != "Fundamentos" {
		t.Errorf("TopicName() = %q; want %q", got.TopicName(), "Fundamentos")
	}
	if got.Detail != sub.Detail {
		t.Errorf("Detail = %q; want %q", got.Detail, sub.Detail)
	}
}

func TestStore_GetSubtopic_NotFound(t *testing.T) {
	s := NewStore(openTestDB(t))

	_, err := s.GetSubtopic(context.Background(), 999)
	if !errors.Is(err, domain.ErrSubtopicNotFound) {
		t.Errorf("GetSubtopic() error = %v; want ErrSubtopicNotFound", err)
	}
}

func TestStore_SaveSubtopic_Upsert(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	sub := seedSubtopic(t, s)

	sub.Name = "Funciones y parámetros"
	if err := s.SaveSubtopic(ctx, sub); err != nil {
		t.Fatalf("SaveSubtopic() error = %v", err)
	}
	got, err := s.GetSubtopic(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubtopic() error = %v", err)
	}
	if got.Name != "Funciones y parámetros" {
		t.Errorf("Name = %q; want updated name", got.Name)
	}
}

func TestStore_SaveQuestions_ListQuestions(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	sub := seedSubtopic(t, s)

	questions := []domain.GeneratedQuestion{
		{
			Text:       "¿Qué palabra define una función?",
			Difficulty: domain.DifficultyBasic,
			Points:     10,
			Options: []domain.AnswerOption{
				{Text: "def", IsCorrect: true, Explanation: "Correcto"},
				{Text: "func", Explanation: "Es Go"},
				{Text: "function", Explanation: "Es JavaScript"},
				{Text: "fn", Explanation: "Es Rust"},
			},
		},
		{
			Text:       "¿Qué devuelve una función sin return?",
			Difficulty: domain.DifficultyBasic,
			Points:     10,
			Options: []domain.AnswerOption{
				{Text: "0"},
				{Text: "None", IsCorrect: true},
			},
		},
	}

	stored, err := s.SaveQuestions(ctx, sub.ID, questions)
	if err != nil {
		t.Fatalf("SaveQuestions() error = %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("len(stored) = %d; want 2", len(stored))
	}
	if stored[0].ID == 0 || stored[0].ID == stored[1].ID {
		t.Errorf("stored IDs = %d, %d; want distinct non-zero", stored[0].ID, stored[1].ID)
	}

	listed, err := s.ListQuestions(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ListQuestions() error = %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("len(listed) = %d; want 2", len(listed))
	}

	first := listed[0].Question
	if first.Text != questions[0].Text {
		t.Errorf("Text = %q; want %q", first.Text, questions[0].Text)
	}
	if len(first.Options) != 4 {
		t.Fatalf("len(Options) = %d; want 4", len(first.Options))
	}
	for i, o := range first.Options {
		if o.Text != questions[0].Options[i].Text {
			t.Errorf("Options[%d].Text = %q; want %q", i, o.Text, questions[0].Options[i].Text)
		}
	}
	if !first.Options[0].IsCorrect || first.Options[1].IsCorrect {
		t.Error("option correctness not preserved")
	}
	if listed[1].Question.CorrectOptions() != 1 {
		t.Errorf("second question CorrectOptions() = %d; want 1", listed[1].Question.CorrectOptions())
	}
}

func TestStore_ListQuestions_Empty(t *testing.T) {
	s := NewStore(openTestDB(t))

	listed, err := s.ListQuestions(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListQuestions() error = %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("len(listed) = %d; want 0", len(listed))
	}
}

func TestStore_Feedback(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	raw, _ := json.Marshal(domain.FeedbackContext{
		ExerciseID: 3, CodeHash: "abc", Result: domain.VerdictIncorrect, Points: 60,
		Errors: []string{"falta un caso"}, PassedCases: 3, TotalCases: 5,
	})
	rec := &domain.FeedbackRecord{
		UserID:        9,
		Kind:          domain.FeedbackKindCodeValidation,
		ContentHash:   "abc",
		ExerciseID:    3,
		RawContext:    raw,
		GeneratedText: "Buen trabajo",
		GeneratedByAI: true,
		ModelName:     "gemini-1.5-flash-002",
	}
	if err := s.SaveFeedback(ctx, rec); err != nil {
		t.Fatalf("SaveFeedback() error = %v", err)
	}

	dup := *rec
	dup.GeneratedText = "otro texto"
	if err := s.SaveFeedback(ctx, &dup); err != nil {
		t.Fatalf("duplicate SaveFeedback() error = %v", err)
	}

	got, err := s.FindFeedback(ctx, "abc", 3, domain.FeedbackKindCodeValidation)
	if err != nil {
		t.Fatalf("FindFeedback() error = %v", err)
	}
	if got.GeneratedText != "Buen trabajo" {
		t.Errorf("GeneratedText = %q; want first write to win", got.GeneratedText)
	}

	res, err := got.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if res.Result != domain.VerdictIncorrect || res.Points != 60 || res.PassedCases != 3 {
		t.Errorf("Result() = %+v; want incorrecto 60 points 3 passed", res)
	}

	_, err = s.FindFeedback(ctx, "abc", 4, domain.FeedbackKindCodeValidation)
	if !errors.Is(err, domain.ErrFeedbackNotFound) {
		t.Errorf("FindFeedback() other exercise error = %v; want ErrFeedbackNotFound", err)
	}
}

func TestStore_UsageTotals(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	records := []domain.UsageRecord{
		{Timestamp: now.Add(-48 * time.Hour), Kind: domain.KindChat, EstimatedTokens: 100, LatencyMS: 10},
		{Timestamp: now, Kind: domain.KindChat, EstimatedTokens: 120, LatencyMS: 200},
		{Timestamp: now, Kind: domain.KindChat, EstimatedTokens: 0, CacheHit: true, LatencyMS: 100, UserID: 5},
		{Timestamp: now, Kind: domain.KindCodeValidation, EstimatedTokens: 500, LatencyMS: 900},
	}
	for _, r := range records {
		if err := s.RecordUsage(ctx, r); err != nil {
			t.Fatalf("RecordUsage() error = %v", err)
		}
	}

	totals, err := s.UsageTotals(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("UsageTotals() error = %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("len(totals) = %d; want 2", len(totals))
	}

	chat := totals[0]
	if chat.Kind != domain.KindChat {
		t.Fatalf("totals[0].Kind = %q; want chat", chat.Kind)
	}
	if chat.Requests != 2 || chat.CacheHits != 1 || chat.EstimatedTokens != 120 {
		t.Errorf("chat totals = %+v; want 2 requests, 1 cache hit, 120 tokens", chat)
	}
	if chat.AvgLatencyMS != 150 {
		t.Errorf("chat AvgLatencyMS = %v; want 150", chat.AvgLatencyMS)
	}
	if totals[1].EstimatedTokens != 500 {
		t.Errorf("code_validation tokens = %d; want 500", totals[1].EstimatedTokens)
	}
}
