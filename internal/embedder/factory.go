package embedder

import (
	"fmt"
	"strings"
)

// ProviderAuto picks a provider from the available API keys
const ProviderAuto = "auto"

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string  // OpenAI-compatible server or Jina endpoint override
	CacheSize int     // 0 disables caching
	RateLimit float64 // Requests per second, 0 means unlimited
}

// ResolveProvider maps "auto" (or empty) to a concrete provider.
// Priority: OpenAI key, then Jina key, then the offline local provider.
func ResolveProvider(provider, openaiKey, jinaKey string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != "" && provider != ProviderAuto {
		return provider
	}
	if openaiKey != "" {
		return ProviderOpenAI
	}
	if jinaKey != "" {
		return ProviderJina
	}
	return ProviderLocal
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return NewJinaProvider(cfg, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}
