// Package embedding converts text into fixed-dimension vectors through
// the OpenAI embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// ErrEmbeddingFailed wraps any terminal failure of the embedding call.
// Callers decide policy: ingestion stores the chunk unembedded, the
// retriever returns an empty result set.
var ErrEmbeddingFailed = errors.New("embedding generation failed")

const (
	// DefaultModel is the embedding model fixed per deployment. The
	// vector dimensionality must match across ingestion and query.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector size of DefaultModel.
	DefaultDimension = 1536

	// DefaultTimeout bounds a single embedding call.
	DefaultTimeout = 30 * time.Second
)

// Embedder generates one embedding per call, retrying rate-limited
// requests with exponential backoff. Same text and model always yield
// the same vector.
type Embedder struct {
	client    *Client
	model     string
	dimension int
	timeout   time.Duration
}

// NewEmbedder creates an Embedder. Zero values select the defaults.
func NewEmbedder(client *Client, model string, dimension int, timeout time.Duration) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Embedder{client: client, model: model, dimension: dimension, timeout: timeout}
}

// Dimension is the vector length this embedder produces.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed generates the embedding vector for a single text. Rate limit
// errors (HTTP 429) are retried with exponential backoff; all other
// failures are permanent and wrap ErrEmbeddingFailed.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	client, err := e.client.Client()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var vector []float32
	operation := func() error {
		resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(fmt.Errorf("no embedding in response"))
		}
		vector = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d", ErrEmbeddingFailed, len(vector), e.dimension)
	}
	return vector, nil
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 narrows the API's float64 vector for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
