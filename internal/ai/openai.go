package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	chat      *openai.ChatModel
	modelName string
	limiter   *rateLimiter
}

func NewOpenAIProvider(ctx context.Context, apiKey, modelName, baseURL string, concurrentReqs int, callTimeout time.Duration) (*OpenAIProvider, error) {
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		Model:   modelName,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI chat model: %w", err)
	}

	return &OpenAIProvider{
		chat:      chat,
		modelName: modelName,
		limiter:   newRateLimiter(concurrentReqs, callTimeout),
	}, nil
}

func (o *OpenAIProvider) Model() string { return o.modelName }

func (o *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := o.limiter.acquire(ctx); err != nil {
		return "", err
	}
	defer o.limiter.release()
	ctx, cancel := o.limiter.callContext(ctx)
	defer cancel()

	messages := make([]*schema.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	messages = append(messages, schema.UserMessage(req.Prompt))

	resp, err := o.chat.Generate(ctx, messages, model.WithTemperature(req.Temperature))
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return "", fmt.Errorf("OpenAI returned an empty response for %s", req.Kind)
	}
	return resp.Content, nil
}
