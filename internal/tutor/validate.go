package tutor

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/lulu/internal/cache"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/llm"
	"github.com/felixgeelhaar/lulu/internal/prompt"
	"github.com/felixgeelhaar/lulu/internal/reconcile"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// ValidateCode judges a submission. Failures after admission never
// propagate: they produce the fallback result. The returned error is either
// an invalid input or a *quota.ExceededError.
func (s *Service) ValidateCode(ctx context.Context, req domain.CodeValidationRequest) (domain.CodeValidationResult, error) {
	if err := req.Validate(); err != nil {
		return domain.CodeValidationResult{}, err
	}
	start := s.now()

	if res, src, ok := s.codes.LookupCode(ctx, req); ok {
		s.logger.Debug("validation served from cache", "exercise_id", req.ExerciseID, "tier", src)
		s.record(ctx, domain.KindCodeValidation, 0, true, start, req.UserID)
		return res, nil
	}

	called := false
	v, err, shared := s.flight.Do(cache.CodeKey(req.Code, req.ExerciseID), func() (any, error) {
		called = true
		return s.validateMiss(context.WithoutCancel(ctx), req)
	})
	if err != nil {
		return domain.CodeValidationResult{}, err
	}
	if shared && !called {
		s.logger.Debug("validation joined an in-flight request", "exercise_id", req.ExerciseID)
	}

	tokens := 0
	if called {
		tokens = usage.CodeValidationTokens
	}
	s.record(ctx, domain.KindCodeValidation, tokens, !called, start, req.UserID)
	return v.(domain.CodeValidationResult), nil
}

func (s *Service) validateMiss(ctx context.Context, req domain.CodeValidationRequest) (domain.CodeValidationResult, error) {
	if err := s.admit(domain.KindCodeValidation); err != nil {
		return domain.CodeValidationResult{}, err
	}

	p, err := prompt.CodeValidation(&req)
	if err != nil {
		s.logger.Error("build validation prompt", "error", err)
		return domain.FallbackValidationResult(err), nil
	}

	raw, err := s.gen.Generate(ctx, p, llm.Options{Kind: domain.KindCodeValidation})
	if err != nil {
		s.logger.Error("validation generation failed", "exercise_id", req.ExerciseID, "error", err)
		return domain.FallbackValidationResult(err), nil
	}

	verdict, err := reconcile.Validation(raw)
	if err != nil {
		s.reconcileFailed(domain.KindCodeValidation, err)
		return domain.FallbackValidationResult(fmt.Errorf("%w: %w", domain.ErrInvalidAIResponse, err)), nil
	}

	res := domain.NewCodeValidationResult(verdict)
	s.codes.StoreCode(ctx, req, res)

	s.logger.Info("code validated",
		"exercise_id", req.ExerciseID,
		"result", res.Result,
		"points", res.Points)
	return res, nil
}
