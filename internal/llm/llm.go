// Package llm selects and configures the completion provider.
package llm

import (
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/opslens/opslens/internal/common"
	"github.com/opslens/opslens/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// Config is assembled once at the process boundary; this package never reads
// the environment itself.
type Config struct {
	// Provider selects the backend: "openai", "ollama", or "" for
	// auto-selection (openai when an API key is present, else none).
	Provider string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	HTTPTimeout   time.Duration

	OllamaURL   string
	OllamaModel string
}

// NewProvider builds the configured provider, or nil when no provider is
// usable. A nil provider routes the pipeline to the deterministic detector.
func NewProvider(cfg Config) Provider {
	logger := common.Logger()
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "ollama":
		provider, err := providers.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			logger.Warn("llm: ollama unavailable", "error", err)
			return nil
		}
		return provider
	case "openai", "":
		if strings.TrimSpace(cfg.OpenAIKey) == "" {
			logger.Warn("llm: no API key configured; AI analysis disabled")
			return nil
		}
		opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, option.WithRequestTimeout(cfg.HTTPTimeout))
		}
		if endpoint := strings.TrimSpace(cfg.OpenAIBaseURL); endpoint != "" {
			logger.Info("llm: using custom OpenAI endpoint", "endpoint", endpoint)
			opts = append(opts, option.WithBaseURL(endpoint))
		}
		client := openai.NewClient(opts...)
		logger.Info("llm: OpenAI provider selected")
		return providers.NewOpenAIProvider(&client, cfg.OpenAIModel)
	default:
		logger.Warn("llm: unknown provider", "provider", cfg.Provider)
		return nil
	}
}
