// Package studygen produces study materials (summaries, flashcards,
// mindmaps) from document text. Structured results are requested
// directly through the JSON response format rather than scraped out of
// free text.
package studygen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/iamnandhu/studysage/internal/embedding"
)

// ErrGeneration wraps failures of the material-generation call.
var ErrGeneration = errors.New("study material generation failed")

// DefaultMaxTokens is the content budget before truncation.
const DefaultMaxTokens = 16000

// DefaultModel is the chat model used for material generation.
const DefaultModel = "gpt-4o"

// Flashcard is one question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MindmapNode is a node of a hierarchical mindmap.
type MindmapNode struct {
	Title    string        `json:"title"`
	Children []MindmapNode `json:"children"`
}

// Generator produces study materials over the shared OpenAI client.
type Generator struct {
	client    *embedding.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewGenerator creates a Generator. Zero values select defaults.
func NewGenerator(client *embedding.Client, model string, maxTokens int, timeout time.Duration) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{client: client, model: model, maxTokens: maxTokens, timeout: timeout}
}

// Summarize produces a structured summary of the document text.
func (g *Generator) Summarize(ctx context.Context, content string) (string, error) {
	prompt := fmt.Sprintf(`Summarize this study document for a student. Cover the main topic, the key points, and any terms worth memorizing.

Document content:
%s

Respond in JSON format:
{"summary": "..."}`, g.truncateContent(content))

	var out struct {
		Summary string `json:"summary"`
	}
	if err := g.generateJSON(ctx, prompt, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// Flashcards produces up to count question/answer pairs from the text.
func (g *Generator) Flashcards(ctx context.Context, content string, count int) ([]Flashcard, error) {
	if count <= 0 {
		count = 10
	}
	prompt := fmt.Sprintf(`Create %d flashcards from this study document. Each card has a clear question and a concise answer grounded in the document.

Document content:
%s

Respond in JSON format:
{"flashcards": [{"question": "...", "answer": "..."}]}`, count, g.truncateContent(content))

	var out struct {
		Flashcards []Flashcard `json:"flashcards"`
	}
	if err := g.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return out.Flashcards, nil
}

// Mindmap produces a hierarchical topic map of the text.
func (g *Generator) Mindmap(ctx context.Context, content string) (*MindmapNode, error) {
	prompt := fmt.Sprintf(`Create a hierarchical mindmap of this study document: a main topic with subtopics, each subtopic optionally broken down further.

Document content:
%s

Respond in JSON format:
{"title": "Main Topic", "children": [{"title": "Subtopic", "children": []}]}`, g.truncateContent(content))

	var out MindmapNode
	if err := g.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// generateJSON runs one chat completion constrained to a JSON object
// and unmarshals the response into out.
func (g *Generator) generateJSON(ctx context.Context, prompt string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := g.client.Client()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices in response", ErrGeneration)
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("%w: parse response: %v", ErrGeneration, err)
	}
	return nil
}

// truncateContent caps content at the token budget, estimating 4
// characters per token.
func (g *Generator) truncateContent(content string) string {
	maxChars := g.maxTokens * 4
	if len(content) <= maxChars {
		return content
	}
	return content[:maxChars]
}
