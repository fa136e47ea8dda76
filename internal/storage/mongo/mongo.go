// Package mongo implements the chunk store on MongoDB Atlas. Similarity
// queries run through the Atlas Vector Search index; lexical fallback
// uses the $text index on chunk content.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iamnandhu/studysage/internal/storage"
)

// Store is a chunk store backed by one MongoDB collection.
type Store struct {
	client    *mongo.Client
	coll      *mongo.Collection
	dimension int
}

// New connects to MongoDB and pings it before returning.
func New(ctx context.Context, uri, database string, dimension int) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %v", storage.ErrUnreachable, err)
	}
	return &Store{
		client:    client,
		coll:      client.Database(database).Collection(storage.CollectionName),
		dimension: dimension,
	}, nil
}

// Put bulk-inserts chunks with an unordered write so one failed chunk
// does not abort the rest of the batch.
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
	docs := make([]any, len(chunks))
	for i, c := range chunks {
		docs[i] = c
	}
	if _, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, userID, documentID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "document_id", Value: documentID},
	})
	if err != nil {
		return fmt.Errorf("purge document %s: %w", documentID, err)
	}
	return nil
}

// SimilaritySearch runs the Atlas $vectorSearch stage, oversampling
// candidates 10x the limit before Atlas narrows to the limit.
func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, f storage.Filter, limit int) ([]*storage.ScoredChunk, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			storage.ErrDimensionMismatch, len(vector), s.dimension)
	}

	filter := bson.D{{Key: "user_id", Value: f.UserID}}
	if len(f.DocumentIDs) > 0 {
		filter = append(filter, bson.E{Key: "document_id", Value: bson.D{{Key: "$in", Value: f.DocumentIDs}}})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: storage.VectorIndexName},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: limit * storage.Oversample},
			{Key: "limit", Value: limit},
			{Key: "filter", Value: filter},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "id", Value: 1},
			{Key: "document_id", Value: 1},
			{Key: "user_id", Value: 1},
			{Key: "chunk_index", Value: 1},
			{Key: "content", Value: 1},
			{Key: "page_number", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSimilaritySearch, err)
	}
	var rows []scoredRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode results: %v", storage.ErrSimilaritySearch, err)
	}

	results := make([]*storage.ScoredChunk, len(rows))
	for i, row := range rows {
		chunk := row.Chunk
		results[i] = &storage.ScoredChunk{Chunk: &chunk, Score: row.Score}
	}
	return results, nil
}

// scoredRow carries the chunk fields plus the $meta search score.
type scoredRow struct {
	Chunk storage.Chunk `bson:",inline"`
	Score float64       `bson:"score"`
}

func (s *Store) LexicalSearch(ctx context.Context, query string, f storage.Filter, limit int) ([]*storage.Chunk, error) {
	filter := bson.D{
		{Key: "user_id", Value: f.UserID},
		{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}},
	}
	if len(f.DocumentIDs) > 0 {
		filter = append(filter, bson.E{Key: "document_id", Value: bson.D{{Key: "$in", Value: f.DocumentIDs}}})
	}

	cursor, err := s.coll.Find(ctx, filter,
		options.Find().SetLimit(int64(limit)).SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	var chunks []*storage.Chunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("lexical search: decode results: %w", err)
	}
	return chunks, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
