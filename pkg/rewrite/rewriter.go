// Package rewrite polishes raw update text before it is posted to the
// portal. The rewriter is an opaque black box to the rest of the
// system: callers hand in text, get text back, and fall back to the
// original on any failure.
package rewrite

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You rewrite short case status updates for a case-management portal.
Keep the meaning, fix grammar and tone, stay under 500 characters, and
reply with the rewritten text only.`

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Rewriter turns raw update text into portal-ready text.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

// OpenAIRewriter implements Rewriter against an OpenAI-compatible API.
type OpenAIRewriter struct {
	client openai.Client
	model  string
}

// Option configures an OpenAIRewriter.
type Option func(*OpenAIRewriter)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(r *OpenAIRewriter) {
		r.model = model
	}
}

// NewOpenAIRewriter creates a rewriter. An empty apiKey falls back to
// the OPENAI_API_KEY environment variable.
func NewOpenAIRewriter(apiKey string, opts ...Option) (*OpenAIRewriter, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("rewrite: API key is required (parameter or OPENAI_API_KEY)")
	}

	r := &OpenAIRewriter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Rewrite sends the text through one chat completion. Callers treat
// any error as "use the original text".
func (r *OpenAIRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("rewrite: completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("rewrite: completion returned no choices")
	}

	out := strings.TrimSpace(completion.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("rewrite: completion returned empty text")
	}
	return out, nil
}

// Noop returns its input unchanged. Used when rewriting is disabled.
type Noop struct{}

func (Noop) Rewrite(ctx context.Context, text string) (string, error) {
	return text, nil
}
