package tutor

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/llm"
	"github.com/felixgeelhaar/lulu/internal/prompt"
	"github.com/felixgeelhaar/lulu/internal/reconcile"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// GenerateQuestions returns req.Count questions for a subtopic, from the
// cached pool when it is large enough. Unlike the other operations it fails
// loudly: there is no safe placeholder for generated content.
func (s *Service) GenerateQuestions(ctx context.Context, req domain.QuestionRequest) (domain.QuestionSet, error) {
	if err := req.Validate(); err != nil {
		return domain.QuestionSet{}, err
	}
	start := s.now()

	if pool, ok := s.pool.LookupQuestions(req.SubtopicID, req.Count, req.Difficulty); ok {
		s.record(ctx, domain.KindQuestionGeneration, 0, true, start, req.UserID)
		return domain.QuestionSet{
			Questions:      pool[:req.Count],
			SubtopicID:     req.SubtopicID,
			GeneratedCount: req.Count,
		}, nil
	}

	subtopic, err := s.subtopics.GetSubtopic(ctx, req.SubtopicID)
	if err != nil {
		if errors.Is(err, domain.ErrSubtopicNotFound) {
			return domain.QuestionSet{}, err
		}
		return domain.QuestionSet{}, fmt.Errorf("load subtopic %d: %w", req.SubtopicID, err)
	}

	if err := s.admit(domain.KindQuestionGeneration); err != nil {
		return domain.QuestionSet{}, err
	}

	p, err := prompt.Questions(subtopic, req.Count, req.Difficulty)
	if err != nil {
		return domain.QuestionSet{}, err
	}

	raw, err := s.gen.Generate(ctx, p, llm.Options{Kind: domain.KindQuestionGeneration})
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("generate questions: %w", err)
	}

	generated, err := reconcile.Questions(raw)
	if err != nil {
		s.reconcileFailed(domain.KindQuestionGeneration, err)
		return domain.QuestionSet{}, fmt.Errorf("%w: %w", domain.ErrInvalidAIResponse, err)
	}

	warnings, err := reconcile.ValidateQuestions(generated)
	for _, w := range warnings {
		s.logger.Warn("generated question", "subtopic_id", req.SubtopicID, "warning", w)
	}
	if err != nil {
		s.reconcileFailed(domain.KindQuestionGeneration, err)
		return domain.QuestionSet{}, fmt.Errorf("%w: %w", domain.ErrInvalidAIResponse, err)
	}

	if s.questions != nil {
		if _, err := s.questions.SaveQuestions(ctx, req.SubtopicID, generated); err != nil {
			s.logger.Error("persist generated questions, continuing",
				"subtopic_id", req.SubtopicID, "count", len(generated), "error", err)
		}
	}
	s.pool.StoreQuestions(req.SubtopicID, generated)

	s.logger.Info("questions generated",
		"subtopic_id", req.SubtopicID,
		"difficulty", req.Difficulty,
		"generated", len(generated))
	s.record(ctx, domain.KindQuestionGeneration, usage.EstimateQuestionTokens(len(generated)), false, start, req.UserID)

	n := min(req.Count, len(generated))
	return domain.QuestionSet{
		Questions:      generated[:n],
		SubtopicID:     req.SubtopicID,
		GeneratedCount: len(generated),
	}, nil
}
