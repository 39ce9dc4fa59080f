package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client    *genai.Client
	modelName string
	limiter   *rateLimiter
	log       *slog.Logger
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string, concurrentReqs int, callTimeout time.Duration, log *slog.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:    client,
		modelName: modelName,
		limiter:   newRateLimiter(concurrentReqs, callTimeout),
		log:       log,
	}, nil
}

func (g *GeminiProvider) Close() {
	g.client.Close()
}

func (g *GeminiProvider) Model() string { return g.modelName }

func (g *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := g.limiter.acquire(ctx); err != nil {
		return "", err
	}
	defer g.limiter.release()
	ctx, cancel := g.limiter.callContext(ctx)
	defer cancel()

	// GenerativeModel carries per-call settings, so each call gets its own.
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(req.Temperature)
	model.SetTopP(0.95)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			g.log.Warn("gemini stopped early", "kind", req.Kind, "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty response for %s", req.Kind)
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
