package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Cache      CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Anthropic  AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig  `yaml:"perplexity" mapstructure:"perplexity"`
	Streaming  []StreamingConfig `yaml:"streaming" mapstructure:"streaming"`
	Geocode    GeocodeConfig     `yaml:"geocode" mapstructure:"geocode"`
	Places     PlacesConfig      `yaml:"places" mapstructure:"places"`
	Pricing    PricingConfig     `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig      `yaml:"server" mapstructure:"server"`
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
	Resilience ResilienceConfig  `yaml:"resilience" mapstructure:"resilience"`
}

// CacheConfig configures the geographic recommendation cache.
type CacheConfig struct {
	Driver                string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL           string `yaml:"database_url" mapstructure:"database_url"`
	DefaultTTLHours       int    `yaml:"default_ttl_hours" mapstructure:"default_ttl_hours"`
	GridPrecisionDecimals int    `yaml:"grid_precision_decimal_places" mapstructure:"grid_precision_decimal_places"`
	PurgeOnStartup        bool   `yaml:"purge_on_startup" mapstructure:"purge_on_startup"`
	FrontSize             int    `yaml:"front_size" mapstructure:"front_size"`
}

// TTL returns the configured default TTL as a time.Duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.DefaultTTLHours) * time.Hour
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutS  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS       float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Timeout returns the configured per-call timeout.
func (c AnthropicConfig) Timeout() time.Duration { return time.Duration(c.TimeoutS) * time.Second }

// PerplexityConfig holds Perplexity provider settings.
type PerplexityConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutS  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS       float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

func (c PerplexityConfig) Timeout() time.Duration { return time.Duration(c.TimeoutS) * time.Second }

// StreamingConfig configures one SSE-aggregating provider (e.g. a
// self-hosted OpenAI-compatible endpoint).
type StreamingConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Key      string `yaml:"key" mapstructure:"key"`
	Model    string `yaml:"model" mapstructure:"model"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutS int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

func (c StreamingConfig) Timeout() time.Duration { return time.Duration(c.TimeoutS) * time.Second }

// GeocodeConfig holds forward/reverse geocoding provider settings.
type GeocodeConfig struct {
	Provider string  `yaml:"provider" mapstructure:"provider"`
	Key      string  `yaml:"key" mapstructure:"key"`
	RPS      float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// PlacesConfig holds the real-places enrichment provider settings.
type PlacesConfig struct {
	Provider string  `yaml:"provider" mapstructure:"provider"`
	Key      string  `yaml:"key" mapstructure:"key"`
	RPS      float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// PricingConfig holds per-provider token pricing used for cost estimation.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PerplexityPricing holds flat per-query Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ResilienceConfig tunes the retry-with-backoff and per-provider circuit
// breaker wrapping every LLM provider call. Zero values fall back to
// resilience's own package defaults.
type ResilienceConfig struct {
	RetryMaxAttempts        int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoffMs   int     `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs       int     `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
	RetryMultiplier         float64 `yaml:"retry_multiplier" mapstructure:"retry_multiplier"`
	RetryJitterFraction     float64 `yaml:"retry_jitter_fraction" mapstructure:"retry_jitter_fraction"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetTimeoutSecs int     `yaml:"circuit_reset_timeout_secs" mapstructure:"circuit_reset_timeout_secs"`
}

// Validate checks required configuration fields for the "serve" run mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		streamingEnabled := false
		for _, sc := range c.Streaming {
			if sc.Enabled {
				streamingEnabled = true
				break
			}
		}
		if !c.Anthropic.Enabled && !c.Perplexity.Enabled && !streamingEnabled {
			errs = append(errs, "at least one of anthropic, perplexity, or streaming must be enabled")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Cache.DefaultTTLHours <= 0 {
		errs = append(errs, "cache.default_ttl_hours must be > 0")
	}
	if c.Cache.GridPrecisionDecimals < 0 {
		errs = append(errs, "cache.grid_precision_decimal_places must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: validation failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RECOMMEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.database_url", "recommend_cache.db")
	v.SetDefault("cache.default_ttl_hours", 24)
	v.SetDefault("cache.grid_precision_decimal_places", 3)
	v.SetDefault("cache.purge_on_startup", true)
	v.SetDefault("cache.front_size", 256)

	v.SetDefault("anthropic.enabled", true)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("anthropic.requests_per_second", 2.0)

	v.SetDefault("perplexity.enabled", true)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.max_tokens", 1024)
	v.SetDefault("perplexity.timeout_secs", 30)
	v.SetDefault("perplexity.requests_per_second", 2.0)

	v.SetDefault("geocode.provider", "google")
	v.SetDefault("geocode.requests_per_second", 5.0)

	v.SetDefault("places.provider", "google")
	v.SetDefault("places.requests_per_second", 5.0)

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("pricing.perplexity.per_query", 0.005)

	v.SetDefault("resilience.retry_max_attempts", 3)
	v.SetDefault("resilience.retry_initial_backoff_ms", 500)
	v.SetDefault("resilience.retry_max_backoff_ms", 30000)
	v.SetDefault("resilience.retry_multiplier", 2.0)
	v.SetDefault("resilience.retry_jitter_fraction", 0.25)
	v.SetDefault("resilience.circuit_failure_threshold", 5)
	v.SetDefault("resilience.circuit_reset_timeout_secs", 30)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
