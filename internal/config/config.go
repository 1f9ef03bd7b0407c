package config

import (
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Research   ResearchConfig            `yaml:"research" mapstructure:"research"`
	Providers  map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Anthropic  AnthropicConfig           `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig              `yaml:"gemini" mapstructure:"gemini"`
	Perplexity PerplexityConfig          `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaConfig                `yaml:"jina" mapstructure:"jina"`
	Google     GoogleConfig              `yaml:"google" mapstructure:"google"`
	Firecrawl  FirecrawlConfig           `yaml:"firecrawl" mapstructure:"firecrawl"`
	Notion     NotionConfig              `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig          `yaml:"salesforce" mapstructure:"salesforce"`
	Publish    PublishConfig             `yaml:"publish" mapstructure:"publish"`
	Gateway    GatewayConfig             `yaml:"gateway" mapstructure:"gateway"`
	Cache      CacheConfig               `yaml:"cache" mapstructure:"cache"`
	Validation ValidationConfig          `yaml:"validation" mapstructure:"validation"`
	Run        RunConfig                 `yaml:"run" mapstructure:"run"`
	Pricing    PricingConfig             `yaml:"pricing" mapstructure:"pricing"`
	Store      StoreConfig               `yaml:"store" mapstructure:"store"`
	Server     ServerConfig              `yaml:"server" mapstructure:"server"`
	Log        LogConfig                 `yaml:"log" mapstructure:"log"`
}

// ResearchConfig holds the thesis, segments, and KPI schema shared by every provider.
type ResearchConfig struct {
	Thesis       string          `yaml:"thesis" mapstructure:"thesis"`
	ThesisFile   string          `yaml:"thesis_file" mapstructure:"thesis_file"`
	Segments     []SegmentConfig `yaml:"segments" mapstructure:"segments"`
	SegmentsFile string          `yaml:"segments_file" mapstructure:"segments_file"`
	KPIs         []string        `yaml:"kpis" mapstructure:"kpis"`
}

// SegmentConfig describes one thematic search bucket.
type SegmentConfig struct {
	Name        string   `yaml:"name" mapstructure:"name"`
	TargetCount int      `yaml:"target_count" mapstructure:"target_count"`
	Anchors     []string `yaml:"anchors" mapstructure:"anchors"`
	Include     []string `yaml:"include" mapstructure:"include"`
	Exclude     []string `yaml:"exclude" mapstructure:"exclude"`
}

// ProviderConfig configures one agent provider.
type ProviderConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Vendor        string `yaml:"vendor" mapstructure:"vendor"`
	Model         string `yaml:"model" mapstructure:"model"`
	MaxTurns      int    `yaml:"max_turns" mapstructure:"max_turns"`
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	BatchSegments bool   `yaml:"batch_segments" mapstructure:"batch_segments"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl settings. fetch_page falls back to
// Firecrawl only when a key is set.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotionConfig holds the tracking database that runs are published to.
type NotionConfig struct {
	Token      string  `yaml:"token" mapstructure:"token"`
	DatabaseID string  `yaml:"database_id" mapstructure:"database_id"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// PublishConfig selects where runs are published.
type PublishConfig struct {
	Target string `yaml:"target" mapstructure:"target"`
}

// GatewayConfig configures the tool gateway.
type GatewayConfig struct {
	TimeoutSecs        int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts        int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs   int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs       int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Allowlist          []string `yaml:"allowlist" mapstructure:"allowlist"`
	Stub               bool     `yaml:"stub" mapstructure:"stub"`
	PerTurnConcurrency int      `yaml:"per_turn_concurrency" mapstructure:"per_turn_concurrency"`
	BreakerFailures    int      `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs   int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// CacheConfig configures the optional shared tool cache.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ValidationConfig configures scoring and enrichment limits.
type ValidationConfig struct {
	AcceptanceThreshold  float64 `yaml:"acceptance_threshold" mapstructure:"acceptance_threshold"`
	MaxEnrichConcurrency int     `yaml:"max_enrich_concurrency" mapstructure:"max_enrich_concurrency"`
	EnrichRatePerSec     float64 `yaml:"enrich_rate_per_sec" mapstructure:"enrich_rate_per_sec"`
	MaxCallsPerCompany   int     `yaml:"max_calls_per_company" mapstructure:"max_calls_per_company"`
	MaxCallsPerSegment   int     `yaml:"max_calls_per_segment" mapstructure:"max_calls_per_segment"`
	MaxCallsPerRun       int     `yaml:"max_calls_per_run" mapstructure:"max_calls_per_run"`
}

// RunConfig configures a single orchestrated run.
type RunConfig struct {
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
	DeadlineMins int    `yaml:"deadline_mins" mapstructure:"deadline_mins"`
	Dry          bool   `yaml:"dry" mapstructure:"dry"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
}

// PricingConfig holds per-vendor pricing rates.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     map[string]ModelPricing `yaml:"gemini" mapstructure:"gemini"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PerplexityPricing holds Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// StoreConfig configures the report index backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read-only report API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "thesis-scout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5.0)
	v.SetDefault("publish.target", "notion")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("gateway.timeout_secs", 30)
	v.SetDefault("gateway.max_attempts", 3)
	v.SetDefault("gateway.initial_backoff_ms", 500)
	v.SetDefault("gateway.max_backoff_ms", 8000)
	v.SetDefault("gateway.per_turn_concurrency", 4)
	v.SetDefault("gateway.breaker_failures", 5)
	v.SetDefault("gateway.breaker_reset_secs", 30)
	v.SetDefault("validation.max_enrich_concurrency", 2)
	v.SetDefault("validation.enrich_rate_per_sec", 2.0)
	v.SetDefault("validation.max_calls_per_company", 3)
	v.SetDefault("validation.max_calls_per_segment", 40)
	v.SetDefault("validation.max_calls_per_run", 200)
	v.SetDefault("run.deadline_mins", 90)
	v.SetDefault("run.output_dir", "reports")
	v.SetDefault("pricing.perplexity.per_query", 0.005)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	for id, p := range cfg.Providers {
		if p.Vendor == "" {
			p.Vendor = id
		}
		if p.MaxTurns == 0 {
			p.MaxTurns = 20
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = 4096
		}
		cfg.Providers[id] = p
	}

	if err := cfg.resolveResearch(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveResearch loads the thesis and segment files referenced by the
// research section. Inline values take precedence over files.
func (c *Config) resolveResearch() error {
	if c.Research.Thesis == "" && c.Research.ThesisFile != "" {
		data, err := os.ReadFile(c.Research.ThesisFile)
		if err != nil {
			return eris.Wrapf(err, "config: read thesis file %s", c.Research.ThesisFile)
		}
		c.Research.Thesis = strings.TrimSpace(string(data))
	}

	if len(c.Research.Segments) == 0 && c.Research.SegmentsFile != "" {
		sf, err := LoadSegmentsFile(c.Research.SegmentsFile)
		if err != nil {
			return err
		}
		c.Research.Segments = sf.Segments
		if len(c.Research.KPIs) == 0 {
			c.Research.KPIs = sf.KPIs
		}
	}
	return nil
}

// EnabledProviders returns the ids of enabled providers in sorted order.
func (c *Config) EnabledProviders() []string {
	var ids []string
	for id, p := range c.Providers {
		if p.Enabled {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
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
