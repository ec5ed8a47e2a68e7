package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// GenerationDefaults are the sampling parameters used for a request kind
// when the caller does not override them.
type GenerationDefaults struct {
	Temperature     float64
	MaxOutputTokens int
}

var (
	kindDefaults = map[domain.RequestKind]GenerationDefaults{
		domain.KindCodeValidation:     {Temperature: 0.3, MaxOutputTokens: 2500},
		domain.KindQuestionGeneration: {Temperature: 0.7, MaxOutputTokens: 3000},
		domain.KindChat:               {Temperature: 0.8, MaxOutputTokens: 2524},
		domain.KindExplainConcept:     {Temperature: 0.8, MaxOutputTokens: 2524},
	}
	fallbackDefaults = GenerationDefaults{Temperature: 0.7, MaxOutputTokens: 1500}

	transientMarkers = []string{
		"RATE_LIMIT",
		"RATE LIMIT",
		"RESOURCE_EXHAUSTED",
		"UNAVAILABLE",
		"429",
		"503",
	}
)

// DefaultsFor returns the generation defaults for kind
func DefaultsFor(kind domain.RequestKind) GenerationDefaults {
	if d, ok := kindDefaults[kind]; ok {
		return d
	}
	return fallbackDefaults
}

// Options tune a single Client.Generate call. Nil fields fall back to the
// defaults of Kind.
type Options struct {
	Kind            domain.RequestKind
	Temperature     *float64
	MaxOutputTokens *int
	JSON            bool
}

func (o Options) resolve(profiles map[domain.RequestKind]GenerationDefaults) GenerationDefaults {
	d, ok := profiles[o.Kind]
	if !ok {
		d = DefaultsFor(o.Kind)
	}
	if o.Temperature != nil {
		d.Temperature = *o.Temperature
	}
	if o.MaxOutputTokens != nil {
		d.MaxOutputTokens = *o.MaxOutputTokens
	}
	return d
}

// IsTransient reports whether err belongs to the transient failure
// vocabulary of model backends (rate limiting, exhausted resources,
// temporary unavailability).
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Temporary() {
		return true
	}
	msg := strings.ToUpper(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Observer receives the outcome of every generation call
type Observer interface {
	Generation(provider, outcome string)
}

// ClientConfig holds configuration for the retrying client
type ClientConfig struct {
	// MaxAttempts including the first call (default: 3)
	MaxAttempts int

	// InitialDelay before the second attempt, doubled afterwards (default: 2s)
	InitialDelay time.Duration

	// MaxDelay caps the backoff (default: 30s)
	MaxDelay time.Duration

	// AttemptTimeout bounds each individual call (default: 60s)
	AttemptTimeout time.Duration

	// EnableCircuitBreaker stops calling the backend after repeated failures
	EnableCircuitBreaker bool

	// EnableBulkhead limits concurrent calls to MaxConcurrent (default: 5)
	EnableBulkhead bool
	MaxConcurrent  int

	// Profiles replace the built-in generation defaults per request kind
	Profiles map[domain.RequestKind]GenerationDefaults

	Logger   *slog.Logger
	Observer Observer
}

// DefaultClientConfig returns the production resilience settings
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxAttempts:          3,
		InitialDelay:         2 * time.Second,
		MaxDelay:             30 * time.Second,
		AttemptTimeout:       60 * time.Second,
		EnableCircuitBreaker: true,
		EnableBulkhead:       true,
		MaxConcurrent:        5,
	}
}

// Client is the generative client adapter. It owns retry and backoff and
// never touches cache, quota or usage accounting.
type Client struct {
	provider       Provider
	retrier        retry.Retry[*Response]
	circuitBreaker circuitbreaker.CircuitBreaker[*Response]
	bulkhead       bulkhead.Bulkhead[*Response]
	attemptTimeout time.Duration
	profiles       map[domain.RequestKind]GenerationDefaults
	logger         *slog.Logger
	observer       Observer
}

// NewClient wraps provider with retry, and optionally a circuit breaker and
// a bulkhead.
func NewClient(provider Provider, cfg ClientConfig) *Client {
	def := DefaultClientConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		provider:       provider,
		attemptTimeout: cfg.AttemptTimeout,
		profiles:       cfg.Profiles,
		logger:         cfg.Logger,
		observer:       cfg.Observer,
	}

	c.retrier = retry.New[*Response](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        false,
		IsRetryable:   IsTransient,
	})

	if cfg.EnableCircuitBreaker {
		name := provider.Name()
		c.circuitBreaker = circuitbreaker.New[*Response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				c.logger.Warn("circuit breaker state change",
					"provider", name,
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = def.MaxConcurrent
		}
		c.bulkhead = bulkhead.New[*Response](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 4,
			QueueTimeout:  30 * time.Second,
		})
	}

	return c
}

// Provider returns the provider name
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Model returns the backend model name when the provider exposes one
func (c *Client) Model() string {
	if m, ok := c.provider.(interface{ Model() string }); ok {
		return m.Model()
	}
	return c.provider.Name()
}

// Generate sends prompt to the model and returns its raw text
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	params := opts.resolve(c.profiles)
	req := &Request{
		Prompt:      prompt,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxOutputTokens,
		JSON:        opts.JSON,
	}

	attempts := 0
	attempt := func(ctx context.Context) (*Response, error) {
		attempts++
		actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()

		resp, err := c.provider.Generate(actx, req)
		if err != nil {
			c.logger.Warn("generation attempt failed",
				"provider", c.provider.Name(),
				"kind", opts.Kind,
				"attempt", attempts,
				"transient", IsTransient(err),
				"error", err)
			return nil, err
		}
		return resp, nil
	}

	operation := attempt
	if c.bulkhead != nil {
		operation = func(ctx context.Context) (*Response, error) {
			return c.bulkhead.Execute(ctx, attempt)
		}
	}

	var (
		resp *Response
		err  error
	)
	if c.circuitBreaker != nil {
		resp, err = c.circuitBreaker.Execute(ctx, func(ctx context.Context) (*Response, error) {
			return c.retrier.Do(ctx, operation)
		})
	} else {
		resp, err = c.retrier.Do(ctx, operation)
	}

	if err != nil {
		c.observe("error")
		return "", &GenerationError{Provider: c.provider.Name(), Attempts: attempts, Err: err}
	}

	c.observe("ok")
	c.logger.Debug("generation complete",
		"provider", c.provider.Name(),
		"kind", opts.Kind,
		"attempts", attempts,
		"output_tokens", resp.Usage.OutputTokens,
		"finish_reason", resp.FinishReason)
	return resp.Content, nil
}

func (c *Client) observe(outcome string) {
	if c.observer != nil {
		c.observer.Generation(c.provider.Name(), outcome)
	}
}
