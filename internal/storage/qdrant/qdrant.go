// Package qdrant implements the chunk store on a Qdrant collection with
// a named content vector plus keyword and full-text payload indexes.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/iamnandhu/studysage/internal/storage"
)

const vectorName = "content"

// Store is a chunk store backed by one Qdrant collection.
type Store struct {
	client    *qdrant.Client
	dimension int
}

// New creates a Qdrant-backed store, verifying health with retry so a
// cold-started Qdrant container has time to come up.
func New(host string, port int, dimension int) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &Store{client: client, dimension: dimension}
	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrUnreachable, err)
	}
	return s, nil
}

func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

// EnsureCollection creates the chunk collection and its payload indexes
// if they do not exist. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == storage.CollectionName {
			return nil
		}
	}

	// Named vector so unembedded chunks can be stored without one.
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: storage.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	for _, field := range []string{"user_id", "document_id"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: storage.CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}

	// Full-text index drives the lexical fallback.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: storage.CollectionName,
		FieldName:      "content",
		FieldType:      qdrant.FieldType_FieldTypeText.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create content text index: %w", err)
	}
	return nil
}

// Put upserts chunks in batches of 100 with retry. Unembedded chunks
// are stored with no vector and are invisible to similarity search.
func (s *Store) Put(ctx context.Context, chunks []*storage.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if c.Embedded() && len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
				storage.ErrDimensionMismatch, c.ID, len(c.Embedding), s.dimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, c := range batch {
			vectors := map[string]*qdrant.Vector{}
			if c.Embedded() {
				vectors[vectorName] = qdrant.NewVector(c.Embedding...)
			}
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(c.ID),
				Vectors: qdrant.NewVectorsMap(vectors),
				Payload: qdrant.NewValueMap(map[string]any{
					"document_id": c.DocumentID,
					"user_id":     c.UserID,
					"chunk_index": c.ChunkIndex,
					"content":     c.Content,
					"page_number": c.PageNumber,
					"created_at":  c.CreatedAt.Format(time.RFC3339),
				}),
			}
		}
		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *Store) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: storage.CollectionName,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

func (s *Store) Purge(ctx context.Context, userID, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: storage.CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("user_id", userID),
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("purge document %s: %w", documentID, err)
	}
	return nil
}

func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, f storage.Filter, limit int) ([]*storage.ScoredChunk, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			storage.ErrDimensionMismatch, len(vector), s.dimension)
	}

	name := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: storage.CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Using:          &name,
		Filter:         buildFilter(f),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Params: &qdrant.SearchParams{
			// Widen the HNSW candidate pool before narrowing to limit.
			HnswEf: qdrant.PtrOf(uint64(limit * storage.Oversample)),
		},
		WithPayload: qdrant.NewWithPayload(true),
		WithVectors: qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSimilaritySearch, err)
	}

	scored := make([]*storage.ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, &storage.ScoredChunk{
			Chunk: chunkFromPayload(result.Id.GetUuid(), result.Payload),
			Score: float64(result.Score),
		})
	}
	return scored, nil
}

// LexicalSearch scrolls points whose content matches the query text.
// Qdrant's text match gives no relevance score, so results come back in
// scroll order.
func (s *Store) LexicalSearch(ctx context.Context, query string, f storage.Filter, limit int) ([]*storage.Chunk, error) {
	filter := buildFilter(f)
	filter.Must = append(filter.Must, qdrant.NewMatchText("content", query))

	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: storage.CollectionName,
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	chunks := make([]*storage.Chunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, chunkFromPayload(result.Id.GetUuid(), result.Payload))
	}
	return chunks, nil
}

func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func buildFilter(f storage.Filter) *qdrant.Filter {
	must := []*qdrant.Condition{
		qdrant.NewMatch("user_id", f.UserID),
	}
	if len(f.DocumentIDs) > 0 {
		must = append(must, qdrant.NewMatchKeywords("document_id", f.DocumentIDs...))
	}
	return &qdrant.Filter{Must: must}
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) *storage.Chunk {
	createdAt, err := time.Parse(time.RFC3339, payload["created_at"].GetStringValue())
	if err != nil {
		createdAt = time.Time{}
	}
	return &storage.Chunk{
		ID:         id,
		DocumentID: payload["document_id"].GetStringValue(),
		UserID:     payload["user_id"].GetStringValue(),
		ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
		Content:    payload["content"].GetStringValue(),
		PageNumber: int(payload["page_number"].GetIntegerValue()),
		CreatedAt:  createdAt,
	}
}
