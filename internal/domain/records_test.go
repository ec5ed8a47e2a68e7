package domain

import (
	"encoding/json"
	"testing"
)

func TestFeedbackRecord_Result(t *testing.T) {
	raw, _ := json.Marshal(FeedbackContext{
		ExerciseID:  3,
		CodeHash:    "abc",
		Result:      VerdictIncorrect,
		Points:      50,
		Errors:      []string{"falta return"},
		PassedCases: 1,
		TotalCases:  2,
	})
	rec := FeedbackRecord{RawContext: raw, GeneratedText: "Revisa el return"}

	got, err := rec.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if got.Result != VerdictIncorrect || got.Points != 50 || got.Feedback != "Revisa el return" {
		t.Errorf("unexpected result %+v", got)
	}
	if got.PassedCases != 1 || got.TotalCases != 2 {
		t.Errorf("cases = %d/%d", got.PassedCases, got.TotalCases)
	}
}

func TestFeedbackRecord_ResultDefaults(t *testing.T) {
	rec := FeedbackRecord{GeneratedText: "ok"}
	got, err := rec.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if got.Result != VerdictCorrect {
		t.Errorf("Result = %q, want correcto", got.Result)
	}
	if got.Errors == nil {
		t.Error("Errors should be an empty slice")
	}
}

func TestChatRequest_RecentHistory(t *testing.T) {
	r := ChatRequest{}
	for i := 0; i < 8; i++ {
		r.History = append(r.History, ChatMessage{Role: ChatRoleUser, Content: string(rune('a' + i))})
	}
	got := r.RecentHistory()
	if len(got) != HistoryWindow {
		t.Fatalf("len = %d, want %d", len(got), HistoryWindow)
	}
	if got[0].Content != "d" || got[4].Content != "h" {
		t.Errorf("window = %v", got)
	}
}
