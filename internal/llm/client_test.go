package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// scriptedProvider fails with the queued errors before succeeding
type scriptedProvider struct {
	mu       sync.Mutex
	failures []error
	calls    int
	lastReq  *Request
	block    bool
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	s.mu.Lock()
	s.calls++
	s.lastReq = req
	n := s.calls
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if n <= len(s.failures) {
		return nil, s.failures[n-1]
	}
	return &Response{Content: `{"ok":true}`, FinishReason: "STOP"}, nil
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) Generation(provider, outcome string) {
	r.outcomes = append(r.outcomes, provider+":"+outcome)
}

func testClientConfig() ClientConfig {
	return ClientConfig{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	p := &scriptedProvider{failures: []error{
		&StatusError{Provider: "scripted", StatusCode: 429, Body: "slow down"},
		errors.New("503 Service Unavailable"),
	}}
	obs := &recordingObserver{}
	cfg := testClientConfig()
	cfg.Observer = obs
	c := NewClient(p, cfg)

	got, err := c.Generate(context.Background(), "prompt", Options{Kind: domain.KindChat})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("Generate() = %q", got)
	}
	if p.calls != 3 {
		t.Errorf("provider called %d times, want 3", p.calls)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "scripted:ok" {
		t.Errorf("observer outcomes = %v", obs.outcomes)
	}
}

func TestClient_NonRetryableFailsImmediately(t *testing.T) {
	p := &scriptedProvider{failures: []error{
		&StatusError{Provider: "scripted", StatusCode: 400, Body: "INVALID_ARGUMENT"},
	}}
	c := NewClient(p, testClientConfig())

	_, err := c.Generate(context.Background(), "prompt", Options{Kind: domain.KindCodeValidation})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Generate() error = %v, want *GenerationError", err)
	}
	if genErr.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", genErr.Attempts)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestClient_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("RESOURCE_EXHAUSTED: quota")
	p := &scriptedProvider{failures: []error{transient, transient, transient, transient}}
	c := NewClient(p, testClientConfig())

	_, err := c.Generate(context.Background(), "prompt", Options{})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Generate() error = %v, want *GenerationError", err)
	}
	if p.calls != 3 {
		t.Errorf("provider called %d times, want 3", p.calls)
	}
}

func TestClient_AttemptTimeout(t *testing.T) {
	p := &scriptedProvider{block: true}
	cfg := testClientConfig()
	cfg.AttemptTimeout = 20 * time.Millisecond
	c := NewClient(p, cfg)

	start := time.Now()
	_, err := c.Generate(context.Background(), "prompt", Options{})
	if err == nil {
		t.Fatal("Generate() expected timeout error")
	}
	if p.calls != 1 {
		t.Errorf("deadline errors are not transient, provider called %d times", p.calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Generate() took %v, attempt timeout not applied", elapsed)
	}
}

func TestClient_AppliesKindDefaultsAndOverrides(t *testing.T) {
	p := &scriptedProvider{}
	c := NewClient(p, testClientConfig())

	if _, err := c.Generate(context.Background(), "p", Options{Kind: domain.KindCodeValidation}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.lastReq.Temperature != 0.3 || p.lastReq.MaxTokens != 2500 {
		t.Errorf("validation defaults = %v/%d, want 0.3/2500", p.lastReq.Temperature, p.lastReq.MaxTokens)
	}

	temp, maxTokens := 0.1, 100
	if _, err := c.Generate(context.Background(), "p", Options{Kind: domain.KindChat, Temperature: &temp, MaxOutputTokens: &maxTokens}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.lastReq.Temperature != 0.1 || p.lastReq.MaxTokens != 100 {
		t.Errorf("overrides = %v/%d, want 0.1/100", p.lastReq.Temperature, p.lastReq.MaxTokens)
	}
}

func TestClient_Profiles(t *testing.T) {
	p := &scriptedProvider{}
	cfg := testClientConfig()
	cfg.Profiles = map[domain.RequestKind]GenerationDefaults{
		domain.KindChat: {Temperature: 0.5, MaxOutputTokens: 800},
	}
	c := NewClient(p, cfg)

	if _, err := c.Generate(context.Background(), "p", Options{Kind: domain.KindChat}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.lastReq.Temperature != 0.5 || p.lastReq.MaxTokens != 800 {
		t.Errorf("profile = %v/%d, want 0.5/800", p.lastReq.Temperature, p.lastReq.MaxTokens)
	}

	if _, err := c.Generate(context.Background(), "p", Options{Kind: domain.KindQuestionGeneration}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.lastReq.MaxTokens != 3000 {
		t.Errorf("kind without profile MaxTokens = %d, want 3000", p.lastReq.MaxTokens)
	}
}

func TestDefaultsFor(t *testing.T) {
	tests := []struct {
		kind domain.RequestKind
		want GenerationDefaults
	}{
		{domain.KindCodeValidation, GenerationDefaults{0.3, 2500}},
		{domain.KindQuestionGeneration, GenerationDefaults{0.7, 3000}},
		{domain.KindChat, GenerationDefaults{0.8, 2524}},
		{domain.KindExplainConcept, GenerationDefaults{0.8, 2524}},
		{domain.RequestKind("other"), GenerationDefaults{0.7, 1500}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := DefaultsFor(tt.kind); got != tt.want {
				t.Errorf("DefaultsFor(%s) = %+v, want %+v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 429", &StatusError{StatusCode: 429}, true},
		{"status 503", &StatusError{StatusCode: 503}, true},
		{"status 500", &StatusError{StatusCode: 500, Body: "INTERNAL"}, false},
		{"rate limit text", errors.New("rate limit reached"), true},
		{"resource exhausted", fmt.Errorf("wrapped: %w", errors.New("RESOURCE_EXHAUSTED")), true},
		{"unavailable", errors.New("service unavailable"), true},
		{"bad request", errors.New("invalid argument"), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClient_Model(t *testing.T) {
	c := NewClient(NewGeminiProvider(GeminiConfig{APIKey: "k"}), testClientConfig())
	if c.Model() != "gemini-1.5-flash-002" {
		t.Errorf("Model() = %s", c.Model())
	}
	if c.Provider() != "gemini" {
		t.Errorf("Provider() = %s", c.Provider())
	}

	c = NewClient(&scriptedProvider{}, testClientConfig())
	if c.Model() != "scripted" {
		t.Errorf("Model() without provider model = %s", c.Model())
	}
}
