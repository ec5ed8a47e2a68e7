package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML overlay read from CONFIG_FILE. Secrets (API keys,
// JWT secret) are never read from it.
type FileConfig struct {
	Server     ServerFile                   `yaml:"server"`
	Database   DatabaseFile                 `yaml:"database"`
	RabbitMQ   RabbitMQFile                 `yaml:"rabbitmq"`
	LLM        LLMFile                      `yaml:"llm"`
	Cache      CacheFile                    `yaml:"cache"`
	Generation map[string]GenerationProfile `yaml:"generation"`
}

// ServerFile holds HTTP server settings
type ServerFile struct {
	Port               int    `yaml:"port"`
	Debug              *bool  `yaml:"debug"`
	LogLevel           string `yaml:"log_level"`
	LogFile            string `yaml:"log_file"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// DatabaseFile holds durable store settings
type DatabaseFile struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
}

// RabbitMQFile holds broker settings
type RabbitMQFile struct {
	URL string `yaml:"url"`
}

// LLMFile holds model backend settings
type LLMFile struct {
	Provider string     `yaml:"provider"`
	Gemini   GeminiFile `yaml:"gemini"`
	Ollama   OllamaFile `yaml:"ollama"`
}

// GeminiFile holds Gemini settings and free-tier limits
type GeminiFile struct {
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	RPMLimit       int    `yaml:"rpm_limit"`
	DailyLimit     int    `yaml:"daily_limit"`
	MonthlyLimit   int    `yaml:"monthly_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// OllamaFile holds local model settings
type OllamaFile struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// CacheFile holds response cache settings
type CacheFile struct {
	TTLDays      int `yaml:"ttl_days"`
	SweepMinutes int `yaml:"sweep_minutes"`
}

// GenerationProfile overrides sampling parameters for one request kind
type GenerationProfile struct {
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// LoadFile reads a YAML overlay
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for kind, p := range fc.Generation {
		if p.Temperature < 0 || p.Temperature > 2 {
			return nil, fmt.Errorf("generation.%s.temperature must be between 0 and 2", kind)
		}
		if p.MaxOutputTokens <= 0 {
			return nil, fmt.Errorf("generation.%s.max_output_tokens must be positive", kind)
		}
	}
	return &fc, nil
}

// Apply copies every value set in the file onto cfg
func (fc *FileConfig) Apply(cfg *Config) {
	setInt(&cfg.Port, fc.Server.Port)
	if fc.Server.Debug != nil {
		cfg.Debug = *fc.Server.Debug
	}
	setString(&cfg.LogLevel, fc.Server.LogLevel)
	setString(&cfg.LogFile, fc.Server.LogFile)
	setInt(&cfg.HTTPRateLimitPerMinute, fc.Server.RateLimitPerMinute)

	setString(&cfg.DatabaseDriver, fc.Database.Driver)
	setString(&cfg.DatabaseURL, fc.Database.URL)
	setString(&cfg.SQLitePath, fc.Database.SQLitePath)

	setString(&cfg.RabbitMQURL, fc.RabbitMQ.URL)

	setString(&cfg.LLMProvider, fc.LLM.Provider)
	setString(&cfg.GeminiModel, fc.LLM.Gemini.Model)
	setString(&cfg.GeminiBaseURL, fc.LLM.Gemini.BaseURL)
	setInt(&cfg.GeminiRPMLimit, fc.LLM.Gemini.RPMLimit)
	setInt(&cfg.GeminiDailyLimit, fc.LLM.Gemini.DailyLimit)
	setInt(&cfg.GeminiMonthlyLimit, fc.LLM.Gemini.MonthlyLimit)
	setInt(&cfg.GeminiTimeoutSeconds, fc.LLM.Gemini.TimeoutSeconds)
	setString(&cfg.OllamaURL, fc.LLM.Ollama.URL)
	setString(&cfg.OllamaModel, fc.LLM.Ollama.Model)

	setInt(&cfg.CacheTTLDays, fc.Cache.TTLDays)
	setInt(&cfg.CacheSweepMinutes, fc.Cache.SweepMinutes)

	if len(fc.Generation) > 0 {
		cfg.Profiles = make(map[string]GenerationProfile, len(fc.Generation))
		for kind, p := range fc.Generation {
			cfg.Profiles[kind] = p
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
