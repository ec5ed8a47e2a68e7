package tutor

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/llm"
	"github.com/felixgeelhaar/lulu/internal/prompt"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// Chat answers a learner message. It is never cached. Model failures
// produce the fixed apologetic reply; the returned error is either an
// invalid input or a *quota.ExceededError.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.ChatResponse{}, err
	}
	start := s.now()

	resp, err := s.chat(ctx, req, domain.KindChat)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	s.record(ctx, domain.KindChat, usage.EstimateChatTokens(req.Message, resp.Reply), false, start, req.UserID)
	return resp, nil
}

// ExplainConcept asks the tutor to explain a concept within an optional topic
// and subtopic.
func (s *Service) ExplainConcept(ctx context.Context, req domain.ConceptRequest) (domain.ConceptExplanation, error) {
	if err := req.Validate(); err != nil {
		return domain.ConceptExplanation{}, err
	}
	start := s.now()

	resp, err := s.chat(ctx, domain.ChatRequest{
		Message: prompt.ConceptMessage(req.Concept),
		Context: &domain.ChatContext{Topic: req.Topic, Subtopic: req.Subtopic},
		UserID:  req.UserID,
	}, domain.KindExplainConcept)
	if err != nil {
		return domain.ConceptExplanation{}, err
	}

	s.record(ctx, domain.KindExplainConcept, usage.ExplainConceptTokens, false, start, req.UserID)
	return domain.ConceptExplanation{Concept: req.Concept, Explanation: resp.Reply}, nil
}

func (s *Service) chat(ctx context.Context, req domain.ChatRequest, kind domain.RequestKind) (domain.ChatResponse, error) {
	if err := s.admit(kind); err != nil {
		return domain.ChatResponse{}, err
	}

	fallback := domain.ChatResponse{Reply: domain.ChatFallbackReply}

	p, err := prompt.Chat(&req)
	if err != nil {
		s.logger.Error("build chat prompt", "error", err)
		return fallback, nil
	}

	raw, err := s.gen.Generate(ctx, p, llm.Options{Kind: kind})
	if err != nil {
		s.logger.Error("chat generation failed", "kind", kind, "error", err)
		return fallback, nil
	}
	if strings.TrimSpace(raw) == "" {
		s.reconcileFailed(kind, llm.ErrEmptyResponse)
		return fallback, nil
	}

	reply, suggestions := ParseReply(raw)
	return domain.ChatResponse{
		Reply:       reply,
		ContextUsed: req.Context != nil,
		Suggestions: suggestions,
	}, nil
}
