package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/iamnandhu/studysage/internal/embedding"
)

// DefaultModel is the chat model used for answer generation.
const DefaultModel = "gpt-4o"

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 30 * time.Second

// OpenAIGenerator implements Generator over the shared OpenAI client.
type OpenAIGenerator struct {
	client  *embedding.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGenerator creates a generator. Zero values select defaults.
func NewOpenAIGenerator(client *embedding.Client, model string, timeout time.Duration) *OpenAIGenerator {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIGenerator{client: client, model: model, timeout: timeout}
}

// Generate performs one chat completion. No retry: the caller owns
// retry policy for generation.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := g.client.Client()
	if err != nil {
		return "", err
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
