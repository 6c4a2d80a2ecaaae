package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/capstone-search/internal/embedder"
)

// clearEnv unsets variables that would leak the developer's environment into tests
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "JINA_API_KEY", "CAPSTONE_OPENAI_API_KEY", "CAPSTONE_JINA_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	v, err := NewViper()
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".capstone", "capstone.db"), cfg.DBPath)
	assert.Equal(t, "auto", cfg.EmbeddingProvider)
	assert.Equal(t, embedder.DefaultCacheSize, cfg.EmbeddingCacheSize)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, 12, cfg.DefaultK)
	assert.Equal(t, 10, cfg.FetchLimit)
	assert.InDelta(t, 0.05, cfg.LexicalBoost, 1e-9)
	assert.False(t, cfg.DegradeOnLexicalFailure)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAPSTONE_DB_PATH", "/tmp/test.db")
	t.Setenv("CAPSTONE_FETCH_LIMIT", "25")
	t.Setenv("CAPSTONE_DEGRADE_ON_LEXICAL_FAILURE", "true")
	t.Setenv("CAPSTONE_LOG_FORMAT", "JSON")
	t.Setenv("OPENAI_API_KEY", "sk-plain")

	v, err := NewViper()
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 25, cfg.FetchLimit)
	assert.True(t, cfg.DegradeOnLexicalFailure)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "sk-plain", cfg.OpenAIAPIKey)
}

func TestLoad_PrefixedKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAPSTONE_JINA_API_KEY", "jina-prefixed")
	t.Setenv("JINA_API_KEY", "jina-plain")

	v, err := NewViper()
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "jina-prefixed", cfg.JinaAPIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DBPath:            "/tmp/db",
			EmbeddingProvider: "auto",
			SummaryProvider:   "auto",
			LogLevel:          "info",
			LogFormat:         "text",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = " " }},
		{"unknown embedding provider", func(c *Config) { c.EmbeddingProvider = "cohere" }},
		{"unknown summary provider", func(c *Config) { c.SummaryProvider = "bard" }},
		{"negative cache", func(c *Config) { c.EmbeddingCacheSize = -1 }},
		{"negative rate", func(c *Config) { c.EmbeddingRateLimit = -0.5 }},
		{"negative k", func(c *Config) { c.DefaultK = -1 }},
		{"negative fetch limit", func(c *Config) { c.FetchLimit = -1 }},
		{"negative boost", func(c *Config) { c.LexicalBoost = -0.01 }},
		{"negative workers", func(c *Config) { c.IngestWorkers = -2 }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestEmbedderConfig(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantProvider string
		wantKey      string
	}{
		{"openai key wins", Config{EmbeddingProvider: "auto", OpenAIAPIKey: "sk", JinaAPIKey: "jn"}, embedder.ProviderOpenAI, "sk"},
		{"jina fallback", Config{EmbeddingProvider: "auto", JinaAPIKey: "jn"}, embedder.ProviderJina, "jn"},
		{"local fallback", Config{EmbeddingProvider: "auto"}, embedder.ProviderLocal, ""},
		{"explicit jina", Config{EmbeddingProvider: "jina", OpenAIAPIKey: "sk", JinaAPIKey: "jn"}, embedder.ProviderJina, "jn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.EmbedderConfig()
			assert.Equal(t, tt.wantProvider, got.Provider)
			assert.Equal(t, tt.wantKey, got.APIKey)
		})
	}
}

func TestGeneratorConfig(t *testing.T) {
	cfg := Config{SummaryProvider: "ollama", OllamaURL: "http://gpu:11434", OllamaModel: "mistral", OpenAIAPIKey: "sk"}
	got := cfg.GeneratorConfig()
	assert.Equal(t, "ollama", got.Provider)
	assert.Equal(t, "http://gpu:11434", got.OllamaURL)
	assert.Equal(t, "mistral", got.OllamaModel)
	assert.Equal(t, "sk", got.OpenAIKey)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CAPSTONE_DEFAULT_K=7\n"), 0600))
	t.Setenv("CAPSTONE_DEFAULT_K", "")
	require.NoError(t, os.Unsetenv("CAPSTONE_DEFAULT_K"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))

	v, err := NewViper()
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.DefaultK)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/data/x.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "x.db"), got)

	got, err = ExpandHome("/abs/x.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/x.db", got)

	got, err = ExpandHome("~user/x.db")
	require.NoError(t, err)
	assert.Equal(t, "~user/x.db", got)
}
