// Package similarity finds the nearest messages to a reference text by
// embedding distance. Pure retrieval; no generation step.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/internal/vector"
)

// DefaultTopK is the number of neighbors returned per search.
const DefaultTopK = 100

// ErrEmptyReference is returned for a blank reference text; the index is
// not touched in that case.
var ErrEmptyReference = errors.New("please enter a query")

// Retriever is the slice of the vector store the service needs.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]vector.Match, error)
}

type Service struct {
	retriever Retriever
}

func NewService(retriever Retriever) *Service {
	return &Service{retriever: retriever}
}

// Document renders a message the way it is indexed in the similarity
// collection. The date prefix keeps near-duplicate posts from different
// days distinguishable.
func Document(date, textEnglish string) string {
	return fmt.Sprintf("[Date: %s] %s", date, textEnglish)
}

// FindSimilar returns the row ids of the k nearest messages, ascending
// by cosine distance. Row ids address the original ingestion order.
func (s *Service) FindSimilar(ctx context.Context, referenceText string, k int) ([]int, error) {
	if strings.TrimSpace(referenceText) == "" {
		return nil, ErrEmptyReference
	}
	if k <= 0 {
		k = DefaultTopK
	}

	matches, err := s.retriever.Query(ctx, referenceText, k)
	if err != nil {
		metrics.SimilarQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	rowIDs := make([]int, 0, len(matches))
	for _, match := range matches {
		id, err := strconv.Atoi(match.ID)
		if err != nil {
			return nil, fmt.Errorf("non-ordinal row id %q in similarity index: %w", match.ID, err)
		}
		rowIDs = append(rowIDs, id)
	}

	metrics.SimilarQueriesTotal.WithLabelValues("ok").Inc()
	return rowIDs, nil
}
