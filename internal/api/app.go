package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/lulu/internal/cache"
	"github.com/felixgeelhaar/lulu/internal/config"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/llm"
	"github.com/felixgeelhaar/lulu/internal/metrics"
	"github.com/felixgeelhaar/lulu/internal/quota"
	"github.com/felixgeelhaar/lulu/internal/storage"
	"github.com/felixgeelhaar/lulu/internal/tutor"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Store   storage.Store
	LLM     *llm.Client
	Limiter *quota.Limiter
	Usage   *usage.Monitor
	Cache   *cache.Memory
	Tutor   *tutor.Service
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config *config.Config
	Store  storage.Store

	// Provider overrides the provider built from Config
	Provider llm.Provider

	// UsageSink receives usage records; the Store is used when nil
	UsageSink usage.Sink

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(ctx context.Context, cfg AppConfig) (*App, error) {
	if cfg.Config == nil || cfg.Store == nil {
		return nil, errors.New("config and store are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := cfg.Config

	provider := cfg.Provider
	if provider == nil {
		registry := llm.NewRegistry()
		if err := initLLMProviders(registry, c); err != nil {
			return nil, fmt.Errorf("init LLM providers: %w", err)
		}
		p, err := registry.Default()
		if err != nil {
			return nil, fmt.Errorf("init LLM providers: %w", err)
		}
		provider = p
	}

	app := &App{
		Config:  c,
		Store:   cfg.Store,
		Metrics: cfg.Metrics,
		Logger:  logger,
	}

	clientCfg := llm.DefaultClientConfig()
	clientCfg.AttemptTimeout = c.AttemptTimeout()
	clientCfg.Profiles = generationProfiles(c.Profiles, logger)
	clientCfg.Logger = logger
	if cfg.Metrics != nil {
		clientCfg.Observer = cfg.Metrics
	}
	app.LLM = llm.NewClient(provider, clientCfg)

	app.Limiter = quota.NewLimiter(c.GeminiRPMLimit, c.GeminiDailyLimit, logger)

	sink := cfg.UsageSink
	if sink == nil {
		sink = cfg.Store
	}
	monitorOpts := []usage.Option{usage.WithSink(sink), usage.WithLogger(logger)}
	if cfg.Metrics != nil {
		monitorOpts = append(monitorOpts, usage.WithObserver(cfg.Metrics))
	}
	app.Usage = usage.NewMonitor(usage.Config{
		DailyLimit:   c.GeminiDailyLimit,
		MonthlyLimit: c.GeminiMonthlyLimit,
		Model:        app.LLM.Model(),
	}, monitorOpts...)

	app.Cache = cache.NewMemory(c.CacheTTLDays, cache.WithLogger(logger))
	tiered := cache.NewTiered(app.Cache, cfg.Store, app.LLM.Model(), logger)

	deps := tutor.Deps{
		Generator:     app.LLM,
		Limiter:       app.Limiter,
		Usage:         app.Usage,
		CodeCache:     tiered,
		QuestionCache: app.Cache,
		Subtopics:     cfg.Store,
		Questions:     cfg.Store,
		Logger:        logger,
	}
	if cfg.Metrics != nil {
		deps.Observer = cfg.Metrics
	}
	app.Tutor = tutor.NewService(deps)

	logger.Info("application initialized",
		"provider", app.LLM.Provider(),
		"model", app.LLM.Model(),
		"rpm_limit", c.GeminiRPMLimit,
		"daily_limit", c.GeminiDailyLimit,
		"cache_ttl_days", c.CacheTTLDays)

	return app, nil
}

// Close releases resources held by the application
func (a *App) Close() error {
	return a.Store.Close()
}

// initLLMProviders sets up model providers based on configuration
func initLLMProviders(registry *llm.Registry, cfg *config.Config) error {
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY required for gemini provider")
		}
		registry.Register("gemini", llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
		}))
		return registry.SetDefault("gemini")

	case "ollama":
		registry.Register("ollama", llm.NewOllamaProvider(llm.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
		}))
		return registry.SetDefault("ollama")

	default:
		return fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}

// generationProfiles keeps the configured profiles whose key names a request kind
func generationProfiles(profiles map[string]config.GenerationProfile, logger *slog.Logger) map[domain.RequestKind]llm.GenerationDefaults {
	if len(profiles) == 0 {
		return nil
	}
	out := make(map[domain.RequestKind]llm.GenerationDefaults, len(profiles))
	for name, p := range profiles {
		kind := domain.RequestKind(name)
		if !kind.IsValid() {
			logger.Warn("ignoring generation profile for unknown kind", "kind", name)
			continue
		}
		out[kind] = llm.GenerationDefaults{Temperature: p.Temperature, MaxOutputTokens: p.MaxOutputTokens}
	}
	return out
}
