// Package config loads settings from an optional config file and DOCNAV_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Navigation NavigationConfig `mapstructure:"navigation"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	APIKey         string        `mapstructure:"api_key"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	BatchLimit     int           `mapstructure:"batch_limit"`
	BatchWorkers   int           `mapstructure:"batch_workers"`
}

type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	AnthropicAPIKey   string        `mapstructure:"anthropic_api_key"`
	AnthropicModel    string        `mapstructure:"anthropic_model"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	OpenAIModel       string        `mapstructure:"openai_model"`
	BaseURL           string        `mapstructure:"base_url"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// APIKey returns the key for the selected provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

// Model returns the model for the selected provider.
func (c LLMConfig) Model() string {
	if c.Provider == "openai" {
		return c.OpenAIModel
	}
	return c.AnthropicModel
}

type NavigationConfig struct {
	MaxSteps            int           `mapstructure:"max_steps"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ContentPreviewChars int           `mapstructure:"content_preview_chars"`
	ChildPreviewChars   int           `mapstructure:"child_preview_chars"`
}

// CacheConfig configures the redis reply cache. An empty Addr disables it.
type CacheConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func (c CacheConfig) Enabled() bool { return c.Addr != "" }

type PipelineConfig struct {
	WorkerCount  int           `mapstructure:"worker_count"`
	MaxQueueSize int           `mapstructure:"max_queue_size"`
	JobTTL       time.Duration `mapstructure:"job_ttl"`
}

type IngestConfig struct {
	DocumentsDir         string `mapstructure:"documents_dir"`
	SectionTokenLimit    int    `mapstructure:"section_token_limit"`
	PDFFallbackPdftotext bool   `mapstructure:"pdf_fallback_pdftotext"`
	MaxFetchBytes        int64  `mapstructure:"max_fetch_bytes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.max_upload_bytes", 52428800) // 50MB
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.batch_limit", 20)
	v.SetDefault("server.batch_workers", 4)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-5")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_model", "gpt-4o")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("llm.max_retries", 3)

	v.SetDefault("navigation.max_steps", 15)
	v.SetDefault("navigation.timeout", 0)
	v.SetDefault("navigation.content_preview_chars", 800)
	v.SetDefault("navigation.child_preview_chars", 200)

	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("pipeline.worker_count", 4)
	v.SetDefault("pipeline.max_queue_size", 100)
	v.SetDefault("pipeline.job_ttl", time.Hour)

	v.SetDefault("ingest.documents_dir", "")
	v.SetDefault("ingest.section_token_limit", 800)
	v.SetDefault("ingest.pdf_fallback_pdftotext", true)
	v.SetDefault("ingest.max_fetch_bytes", 10<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads path when given, else looks for docnav.yaml in ./config and the
// working directory. A missing default file is not an error; environment
// variables (DOCNAV_SERVER_PORT, DOCNAV_LLM_PROVIDER, ...) override both.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("docnav")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DOCNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.Navigation.MaxSteps <= 0 {
		c.Navigation.MaxSteps = 15
	}
	if c.Pipeline.WorkerCount <= 0 {
		c.Pipeline.WorkerCount = 4
	}
	if c.Pipeline.MaxQueueSize <= 0 {
		c.Pipeline.MaxQueueSize = 100
	}
	if c.Pipeline.JobTTL <= 0 {
		c.Pipeline.JobTTL = time.Hour
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 52428800
	}
	if c.Server.BatchLimit <= 0 {
		c.Server.BatchLimit = 20
	}
	if c.Server.BatchWorkers <= 0 {
		c.Server.BatchWorkers = 4
	}
}

// Validate checks what every command needs to reach the oracle.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm.provider must be anthropic or openai, got %q", c.LLM.Provider)
	}
	if c.LLM.APIKey() == "" {
		return fmt.Errorf("an API key for provider %s is required (DOCNAV_LLM_%s_API_KEY)", c.LLM.Provider, strings.ToUpper(c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}
	return nil
}

// ValidateServer adds the checks for the HTTP server.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("server.api_key is required (DOCNAV_SERVER_API_KEY)")
	}
	return nil
}
