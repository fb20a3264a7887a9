package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Generator produces an answer from a system and user prompt. The returned
// provider names which backend served the request.
type Generator interface {
	Generate(ctx context.Context, model, system, user string) (text, provider string, err error)
}

// Router dispatches to OpenAI or Anthropic based on the requested model name.
type Router struct {
	openaiKey    string
	anthropicKey string
}

func NewRouter(openaiKey, anthropicKey string) *Router {
	return &Router{openaiKey: openaiKey, anthropicKey: anthropicKey}
}

func isAnthropicModel(model string) bool {
	return strings.HasPrefix(model, "claude") || strings.HasPrefix(model, "opus")
}

func (r *Router) Generate(ctx context.Context, model, system, user string) (string, string, error) {
	if isAnthropicModel(model) {
		text, err := r.anthropicGenerate(ctx, model, system, user)
		return text, "anthropic", err
	}
	text, err := r.openaiGenerate(ctx, model, system, user)
	return text, "openai", err
}

func (r *Router) openaiGenerate(ctx context.Context, model, system, user string) (string, error) {
	llm, err := openai.New(
		openai.WithToken(r.openaiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return "", fmt.Errorf("init openai client: %w", err)
	}
	return generate(ctx, llm, system, user)
}

func (r *Router) anthropicGenerate(ctx context.Context, model, system, user string) (string, error) {
	llm, err := anthropic.New(
		anthropic.WithToken(r.anthropicKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return "", fmt.Errorf("init anthropic client: %w", err)
	}
	return generate(ctx, llm, system, user)
}

func generate(ctx context.Context, llm llms.Model, system, user string) (string, error) {
	resp, err := llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}, llms.WithMaxTokens(4096))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
