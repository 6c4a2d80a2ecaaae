// Package config loads capstone-search settings from defaults, a .env file,
// CAPSTONE_* environment variables and bound CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dshills/capstone-search/internal/embedder"
	"github.com/dshills/capstone-search/internal/summarizer"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "CAPSTONE"

// Configuration keys
const (
	KeyDBPath                  = "db_path"
	KeyEmbeddingProvider       = "embedding_provider"
	KeyEmbeddingModel          = "embedding_model"
	KeyEmbeddingBaseURL        = "embedding_base_url"
	KeyOpenAIAPIKey            = "openai_api_key"
	KeyJinaAPIKey              = "jina_api_key"
	KeyEmbeddingCacheSize      = "embedding_cache_size"
	KeyEmbeddingRateLimit      = "embedding_rate_limit"
	KeySummaryProvider         = "summary_provider"
	KeyChatModel               = "chat_model"
	KeyChatBaseURL             = "chat_base_url"
	KeyOllamaURL               = "ollama_url"
	KeyOllamaModel             = "ollama_model"
	KeyDefaultK                = "default_k"
	KeyFetchLimit              = "fetch_limit"
	KeyLexicalBoost            = "lexical_boost"
	KeyDegradeOnLexicalFailure = "degrade_on_lexical_failure"
	KeyIngestWorkers           = "ingest_workers"
	KeyLogLevel                = "log_level"
	KeyLogFormat               = "log_format"
	KeyMetricsAddr             = "metrics_addr"
)

// DefaultDBPath is used when db_path is not set
const DefaultDBPath = "~/.capstone/capstone.db"

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved application configuration
type Config struct {
	DBPath string

	// Embeddings
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingBaseURL   string
	OpenAIAPIKey       string
	JinaAPIKey         string
	EmbeddingCacheSize int
	EmbeddingRateLimit float64

	// Summaries
	SummaryProvider string
	ChatModel       string
	ChatBaseURL     string
	OllamaURL       string
	OllamaModel     string

	// Retrieval
	DefaultK                int
	FetchLimit              int
	LexicalBoost            float64
	DegradeOnLexicalFailure bool

	IngestWorkers int

	// Observability
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, DefaultDBPath)
	v.SetDefault(KeyEmbeddingProvider, embedder.ProviderAuto)
	v.SetDefault(KeyEmbeddingModel, "")
	v.SetDefault(KeyEmbeddingBaseURL, "")
	v.SetDefault(KeyOpenAIAPIKey, "")
	v.SetDefault(KeyJinaAPIKey, "")
	v.SetDefault(KeyEmbeddingCacheSize, embedder.DefaultCacheSize)
	v.SetDefault(KeyEmbeddingRateLimit, 0.0)
	v.SetDefault(KeySummaryProvider, summarizer.ProviderAuto)
	v.SetDefault(KeyChatModel, summarizer.DefaultChatModel)
	v.SetDefault(KeyChatBaseURL, "")
	v.SetDefault(KeyOllamaURL, summarizer.DefaultOllamaURL)
	v.SetDefault(KeyOllamaModel, summarizer.DefaultOllamaModel)
	v.SetDefault(KeyDefaultK, 12)
	v.SetDefault(KeyFetchLimit, 10)
	v.SetDefault(KeyLexicalBoost, 0.05)
	v.SetDefault(KeyDegradeOnLexicalFailure, false)
	v.SetDefault(KeyIngestWorkers, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsAddr, "")
}

// NewViper returns a viper instance with defaults and environment binding.
// API keys are also read from their conventional unprefixed variables.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv(KeyOpenAIAPIKey, "CAPSTONE_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind %s: %w", KeyOpenAIAPIKey, err)
	}
	if err := v.BindEnv(KeyJinaAPIKey, "CAPSTONE_JINA_API_KEY", "JINA_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind %s: %w", KeyJinaAPIKey, err)
	}
	return v, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env").
// Missing files are ignored; variables already in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads a Config from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	dbPath, err := ExpandHome(v.GetString(KeyDBPath))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:                  dbPath,
		EmbeddingProvider:       strings.ToLower(strings.TrimSpace(v.GetString(KeyEmbeddingProvider))),
		EmbeddingModel:          v.GetString(KeyEmbeddingModel),
		EmbeddingBaseURL:        v.GetString(KeyEmbeddingBaseURL),
		OpenAIAPIKey:            v.GetString(KeyOpenAIAPIKey),
		JinaAPIKey:              v.GetString(KeyJinaAPIKey),
		EmbeddingCacheSize:      v.GetInt(KeyEmbeddingCacheSize),
		EmbeddingRateLimit:      v.GetFloat64(KeyEmbeddingRateLimit),
		SummaryProvider:         strings.ToLower(strings.TrimSpace(v.GetString(KeySummaryProvider))),
		ChatModel:               v.GetString(KeyChatModel),
		ChatBaseURL:             v.GetString(KeyChatBaseURL),
		OllamaURL:               v.GetString(KeyOllamaURL),
		OllamaModel:             v.GetString(KeyOllamaModel),
		DefaultK:                v.GetInt(KeyDefaultK),
		FetchLimit:              v.GetInt(KeyFetchLimit),
		LexicalBoost:            v.GetFloat64(KeyLexicalBoost),
		DegradeOnLexicalFailure: v.GetBool(KeyDegradeOnLexicalFailure),
		IngestWorkers:           v.GetInt(KeyIngestWorkers),
		LogLevel:                strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:               strings.ToLower(v.GetString(KeyLogFormat)),
		MetricsAddr:             v.GetString(KeyMetricsAddr),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, KeyDBPath)
	}

	switch c.EmbeddingProvider {
	case embedder.ProviderAuto, embedder.ProviderOpenAI, embedder.ProviderJina, embedder.ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, KeyEmbeddingProvider, c.EmbeddingProvider)
	}
	switch c.SummaryProvider {
	case summarizer.ProviderAuto, summarizer.ProviderOpenAI, summarizer.ProviderOllama:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, KeySummaryProvider, c.SummaryProvider)
	}

	if c.EmbeddingCacheSize < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyEmbeddingCacheSize)
	}
	if c.EmbeddingRateLimit < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyEmbeddingRateLimit)
	}
	if c.DefaultK < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyDefaultK)
	}
	if c.FetchLimit < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyFetchLimit)
	}
	if c.LexicalBoost < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyLexicalBoost)
	}
	if c.IngestWorkers < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyIngestWorkers)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, KeyLogLevel, c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, KeyLogFormat, c.LogFormat)
	}
	return nil
}

// EmbedderConfig resolves the embedding provider and its API key
func (c *Config) EmbedderConfig() embedder.Config {
	provider := embedder.ResolveProvider(c.EmbeddingProvider, c.OpenAIAPIKey, c.JinaAPIKey)

	var apiKey string
	switch provider {
	case embedder.ProviderOpenAI:
		apiKey = c.OpenAIAPIKey
	case embedder.ProviderJina:
		apiKey = c.JinaAPIKey
	}

	return embedder.Config{
		Provider:  provider,
		APIKey:    apiKey,
		Model:     c.EmbeddingModel,
		BaseURL:   c.EmbeddingBaseURL,
		CacheSize: c.EmbeddingCacheSize,
		RateLimit: c.EmbeddingRateLimit,
	}
}

// GeneratorConfig returns the summary generator settings
func (c *Config) GeneratorConfig() summarizer.GeneratorConfig {
	return summarizer.GeneratorConfig{
		Provider:    c.SummaryProvider,
		OpenAIKey:   c.OpenAIAPIKey,
		OpenAIURL:   c.ChatBaseURL,
		ChatModel:   c.ChatModel,
		OllamaURL:   c.OllamaURL,
		OllamaModel: c.OllamaModel,
	}
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
