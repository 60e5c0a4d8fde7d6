package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/opslens/opslens/internal/common"
)

// OllamaProvider runs completions against a local Ollama server via
// langchaingo, for sites that cannot send ticket data to a hosted API.
type OllamaProvider struct {
	model llms.Model
	name  string
}

func NewOllamaProvider(serverURL, model string) (*OllamaProvider, error) {
	if model == "" {
		model = "llama3"
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if strings.TrimSpace(serverURL) != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama: %w", err)
	}
	common.Logger().Info("llm: Ollama provider configured", "model", model)
	return &OllamaProvider{model: client, name: model}, nil
}

func (o *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if o.model == nil {
		return "", fmt.Errorf("nil ollama client")
	}
	logger := common.Logger()
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := schema.ChatMessageTypeHuman
		switch msg.Role {
		case "system":
			role = schema.ChatMessageTypeSystem
		case "assistant":
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}
	logger.Debug("llm: sending ollama request", "model", o.name, "messages", len(messages))
	resp, err := o.model.GenerateContent(ctx, content)
	if err != nil {
		logger.Error("llm: ollama request failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Content, nil
}

func (o *OllamaProvider) Name() string {
	return "ollama"
}
