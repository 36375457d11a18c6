// Package vector maintains named nearest-neighbor indices over message
// embeddings. Two independently configured stores exist per deployment:
// a symmetric one for "find similar messages" and an asymmetric
// document/query pair for RAG grounding. They never share a namespace.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/pkg/logger"
)

var (
	// ErrEmbedding marks an embedding backend failure. Not retried at
	// this layer; retry policy belongs to the caller.
	ErrEmbedding = errors.New("embedding backend failed")
	// ErrNotFound marks an open/query against a collection that does
	// not exist.
	ErrNotFound = errors.New("collection not found")
	// ErrAlreadyExists marks a create against an existing collection.
	ErrAlreadyExists = errors.New("collection already exists")
)

// DefaultInsertBatchSize respects the embedding backend's maximum batch
// load per request.
const DefaultInsertBatchSize = 100

// Match is one nearest-neighbor hit.
type Match struct {
	ID       string
	Distance float32
	Text     string
}

// Collection is the persistence backend of one index.
type Collection interface {
	Insert(ctx context.Context, ids []string, vectors [][]float32, texts []string) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int64, error)
}

// Store binds one Collection to its document- and query-mode embedders.
type Store struct {
	name          string
	coll          Collection
	docEmbedder   Embedder
	queryEmbedder Embedder
	batchSize     int
	nextID        int64
}

// NewStore attaches to a collection. The store's row-id counter resumes
// from the collection's current size, so identifiers stay equal to each
// document's ordinal position in the cumulative insertion sequence.
func NewStore(ctx context.Context, name string, coll Collection, docEmbedder, queryEmbedder Embedder, batchSize int) (*Store, error) {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatchSize
	}

	count, err := coll.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count collection %q: %w", name, err)
	}

	return &Store{
		name:          name,
		coll:          coll,
		docEmbedder:   docEmbedder,
		queryEmbedder: queryEmbedder,
		batchSize:     batchSize,
		nextID:        count,
	}, nil
}

// Add embeds and inserts documents in insertion order. Identifiers are
// the cumulative ordinal positions, so they double as row offsets into
// the source message array; callers must feed documents in the same
// order they use when mapping results back. Insertion is chunked; a
// failed chunk rolls back only itself, prior chunks stay inserted.
func (s *Store) Add(ctx context.Context, documents []string) error {
	for start := 0; start < len(documents); start += s.batchSize {
		end := start + s.batchSize
		if end > len(documents) {
			end = len(documents)
		}
		batch := documents[start:end]

		vectors, err := s.docEmbedder.Embed(ctx, batch)
		if err != nil {
			return fmt.Errorf("embedding batch at offset %d: %w", start, err)
		}

		ids := make([]string, len(batch))
		for i := range batch {
			ids[i] = strconv.FormatInt(s.nextID+int64(i), 10)
		}

		if err := s.coll.Insert(ctx, ids, vectors, batch); err != nil {
			return fmt.Errorf("inserting batch at offset %d: %w", start, err)
		}

		s.nextID += int64(len(batch))
		metrics.IndexedDocuments.WithLabelValues(s.name).Add(float64(len(batch)))
	}

	logger.Info("Documents added to collection",
		zap.String("collection", s.name),
		zap.Int("count", len(documents)),
		zap.Int64("total", s.nextID),
	)

	return nil
}

// Query embeds the text in query mode and returns the k nearest
// neighbors by cosine distance, ascending.
func (s *Store) Query(ctx context.Context, text string, k int) ([]Match, error) {
	vectors, err := s.queryEmbedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", ErrEmbedding, len(vectors))
	}

	matches, err := s.coll.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search in %q failed: %w", s.name, err)
	}

	return matches, nil
}

// Len reports the number of documents inserted so far.
func (s *Store) Len() int64 {
	return s.nextID
}
