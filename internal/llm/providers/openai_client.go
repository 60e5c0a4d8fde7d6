package providers

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v2"

	"github.com/opslens/opslens/internal/common"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(client *openai.Client, model string) *OpenAIProvider {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	common.Logger().Info("llm: OpenAI provider configured", "model", model)
	return &OpenAIProvider{client: client, model: model}
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if o.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	logger := common.Logger()
	logger.Debug("llm: sending chat completion request", "model", o.model, "messages", len(messages))
	params := openai.ChatCompletionNewParams{Model: o.model}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("llm: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	logger.Debug("llm: chat completion succeeded")
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}
