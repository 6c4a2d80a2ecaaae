package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Generator providers
const (
	ProviderAuto   = "auto"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultChatModel   = "gpt-4o-mini"
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3"

	ollamaTimeout = 120 * time.Second
)

var (
	// ErrGenerationFailed wraps any failure of the underlying model call
	ErrGenerationFailed = errors.New("summary generation failed")
	// ErrUnknownProvider is returned for unsupported generator names
	ErrUnknownProvider = errors.New("unknown summary provider")
)

// Generator produces text from a system instruction and a user prompt
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// GeneratorConfig selects and configures a Generator
type GeneratorConfig struct {
	Provider    string
	OpenAIKey   string
	OpenAIURL   string // Optional OpenAI-compatible base URL
	ChatModel   string
	OllamaURL   string
	OllamaModel string
}

// NewGenerator builds the configured generator. "auto" uses OpenAI when a key
// is present and Ollama otherwise.
func NewGenerator(cfg GeneratorConfig) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderAuto {
		provider = ProviderOllama
		if cfg.OpenAIKey != "" {
			provider = ProviderOpenAI
		}
	}

	switch provider {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" && cfg.OpenAIURL == "" {
			return nil, fmt.Errorf("%w: openai api key not set", ErrGenerationFailed)
		}
		return NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIURL, cfg.ChatModel), nil
	case ProviderOllama:
		return NewOllamaGenerator(cfg.OllamaURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// OpenAIGenerator calls a chat completions endpoint
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a chat-completions generator
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) Name() string {
	return ProviderOpenAI + ":" + g.model
}

// OllamaGenerator calls a local Ollama server without streaming
type OllamaGenerator struct {
	url        string
	model      string
	httpClient *http.Client
}

// NewOllamaGenerator creates an Ollama generator
func NewOllamaGenerator(url, model string) *OllamaGenerator {
	if url == "" {
		url = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaGenerator{
		url:   strings.TrimRight(url, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: ollamaTimeout,
		},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":  g.model,
		"system": system,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: ollama status %d: %s", ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrGenerationFailed, err)
	}
	return strings.TrimSpace(out.Response), nil
}

func (g *OllamaGenerator) Name() string {
	return ProviderOllama + ":" + g.model
}
