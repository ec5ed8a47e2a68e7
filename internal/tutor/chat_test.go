package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/quota"
)

const structuredReply = `¡Buena pregunta! 😊 Una función es un bloque reutilizable.

---SUGERENCIAS---
- Intenta crear una función que calcule factoriales
- Puedes practicar con la secuencia de Fibonacci
- Explora el concepto de recursión con más ejemplos
- Una cuarta sugerencia que sobra`

func TestChat(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: structuredReply})

	got, err := f.svc.Chat(context.Background(), domain.ChatRequest{
		Message: "¿Qué es una función?",
		Context: &domain.ChatContext{Topic: "Funciones"},
		UserID:  9,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if got.Reply != "¡Buena pregunta! 😊 Una función es un bloque reutilizable." {
		t.Errorf("Reply = %q", got.Reply)
	}
	if !got.ContextUsed {
		t.Error("ContextUsed should be true")
	}
	if len(got.Suggestions) != 3 || got.Suggestions[0] != "Intenta crear una función que calcule factoriales" {
		t.Errorf("Suggestions = %v", got.Suggestions)
	}
	if f.gen.opts[0].Kind != domain.KindChat {
		t.Errorf("kind = %s", f.gen.opts[0].Kind)
	}

	records := f.monitor.Export()
	if len(records) != 1 || records[0].Kind != domain.KindChat || records[0].CacheHit || records[0].UserID != 9 {
		t.Errorf("usage records = %+v", records)
	}
	if records[0].EstimatedTokens == 0 {
		t.Error("chat tokens should be estimated from message and reply")
	}
}

func TestChat_ModelFailureReturnsApology(t *testing.T) {
	f := newFixture(t, &fakeGenerator{err: errors.New("UNAVAILABLE")})

	got, err := f.svc.Chat(context.Background(), domain.ChatRequest{
		Message: "hola",
		Context: &domain.ChatContext{Topic: "x"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got.Reply != domain.ChatFallbackReply {
		t.Errorf("Reply = %q", got.Reply)
	}
	if got.ContextUsed || got.Suggestions != nil {
		t.Errorf("fallback = %+v", got)
	}
}

func TestChat_EmptyReply(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: "   "})

	got, err := f.svc.Chat(context.Background(), domain.ChatRequest{Message: "hola"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got.Reply != domain.ChatFallbackReply {
		t.Errorf("Reply = %q", got.Reply)
	}
}

func TestChat_Errors(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: "ok"})

	if _, err := f.svc.Chat(context.Background(), domain.ChatRequest{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty message error = %v", err)
	}

	f.svc.limiter = denyAll{}
	if _, err := f.svc.Chat(context.Background(), domain.ChatRequest{Message: "hola"}); !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Errorf("denied chat error = %v", err)
	}
}

func TestExplainConcept(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: "La recursión es cuando una función se llama a sí misma."})

	got, err := f.svc.ExplainConcept(context.Background(), domain.ConceptRequest{
		Concept:  "recursión",
		Topic:    "Funciones",
		Subtopic: "Recursividad",
	})
	if err != nil {
		t.Fatalf("ExplainConcept() error = %v", err)
	}

	if got.Concept != "recursión" || !strings.HasPrefix(got.Explanation, "La recursión") {
		t.Errorf("explanation = %+v", got)
	}
	p := f.gen.prompts[0]
	for _, want := range []string{"Explícame el concepto: recursión", "- Tema: Funciones", "- Subtema: Recursividad"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if f.gen.opts[0].Kind != domain.KindExplainConcept {
		t.Errorf("kind = %s", f.gen.opts[0].Kind)
	}

	records := f.monitor.Export()
	if len(records) != 1 || records[0].Kind != domain.KindExplainConcept || records[0].EstimatedTokens != 300 {
		t.Errorf("usage records = %+v", records)
	}
}
