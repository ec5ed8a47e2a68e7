// Package tutor sequences the model-backed use cases: code validation,
// question generation, the tutoring chat and concept explanations. Each
// operation checks the cache, gates the model call through the quota limiter,
// reconciles the response and records usage whether or not the model was
// called.
package tutor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/lulu/internal/cache"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/llm"
	"github.com/felixgeelhaar/lulu/internal/quota"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// Generator calls the generative model
type Generator interface {
	Generate(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Admitter gates calls to the model
type Admitter interface {
	Admit(now time.Time) quota.Decision
}

// UsageRecorder receives one entry per completed operation
type UsageRecorder interface {
	Record(ctx context.Context, e usage.Entry)
}

// CodeCache stores validation results by normalized code and exercise
type CodeCache interface {
	LookupCode(ctx context.Context, req domain.CodeValidationRequest) (domain.CodeValidationResult, cache.Source, bool)
	StoreCode(ctx context.Context, req domain.CodeValidationRequest, res domain.CodeValidationResult)
}

// QuestionCache stores generated question pools by subtopic and difficulty
type QuestionCache interface {
	LookupQuestions(subtopicID int64, count int, difficulty domain.Difficulty) ([]domain.GeneratedQuestion, bool)
	StoreQuestions(subtopicID int64, questions []domain.GeneratedQuestion)
}

// SubtopicRepository loads the content questions are generated for
type SubtopicRepository interface {
	GetSubtopic(ctx context.Context, id int64) (*domain.Subtopic, error)
}

// QuestionRepository persists generated questions with their options
type QuestionRepository interface {
	SaveQuestions(ctx context.Context, subtopicID int64, questions []domain.GeneratedQuestion) ([]domain.StoredQuestion, error)
}

// Observer is notified of quota denials and unusable model output
type Observer interface {
	QuotaDenied(window string)
	ReconcileFailed(kind domain.RequestKind)
}

// Deps are the collaborators of a Service. Usage, Questions and Observer are
// optional.
type Deps struct {
	Generator     Generator
	Limiter       Admitter
	Usage         UsageRecorder
	CodeCache     CodeCache
	QuestionCache QuestionCache
	Subtopics     SubtopicRepository
	Questions     QuestionRepository
	Observer      Observer
	Logger        *slog.Logger
	Now           func() time.Time
}

// Service implements the tutoring use cases
type Service struct {
	gen       Generator
	limiter   Admitter
	usage     UsageRecorder
	codes     CodeCache
	pool      QuestionCache
	subtopics SubtopicRepository
	questions QuestionRepository
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time

	// flight collapses concurrent identical validation misses into one
	// model call.
	flight singleflight.Group
}

// NewService creates a Service
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		gen:       d.Generator,
		limiter:   d.Limiter,
		usage:     d.Usage,
		codes:     d.CodeCache,
		pool:      d.QuestionCache,
		subtopics: d.Subtopics,
		questions: d.Questions,
		observer:  d.Observer,
		logger:    d.Logger,
		now:       d.Now,
	}
}

// admit asks the limiter for a slot and converts a denial into a
// *quota.ExceededError.
func (s *Service) admit(kind domain.RequestKind) error {
	d := s.limiter.Admit(s.now())
	if d.Allowed {
		return nil
	}
	s.logger.Warn("model quota denied request",
		"kind", kind,
		"window", d.Reason,
		"current", d.Current,
		"limit", d.Limit,
		"retry_after_seconds", d.RetryAfterSeconds)
	if s.observer != nil {
		s.observer.QuotaDenied(string(d.Reason))
	}
	return d.Err()
}

func (s *Service) record(ctx context.Context, kind domain.RequestKind, tokens int, cacheHit bool, start time.Time, userID int64) {
	if s.usage == nil {
		return
	}
	s.usage.Record(ctx, usage.Entry{
		Kind:            kind,
		EstimatedTokens: tokens,
		CacheHit:        cacheHit,
		Latency:         s.now().Sub(start),
		UserID:          userID,
	})
}

func (s *Service) reconcileFailed(kind domain.RequestKind, err error) {
	s.logger.Error("model response could not be reconciled", "kind", kind, "error", err)
	if s.observer != nil {
		s.observer.ReconcileFailed(kind)
	}
}
