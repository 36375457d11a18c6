package vector

import (
	"context"
	"fmt"

	"github.com/telefeed/backend/internal/metrics"
)

// Mode selects the embedding space a text is projected into. Document
// and query modes form an asymmetric dual-encoder pair for retrieval;
// similarity mode is symmetric, for whole-message nearest neighbors.
// Each mode is a separate Embedder instance, never a flag mutated on a
// shared object.
type Mode string

const (
	ModeDocument   Mode = "retrieval_document"
	ModeQuery      Mode = "retrieval_query"
	ModeSimilarity Mode = "semantic_similarity"
)

// prefix returns the instruction prepended to each input so one backend
// model serves the distinct embedding spaces.
func (m Mode) prefix() string {
	switch m {
	case ModeDocument:
		return "search_document: "
	case ModeQuery:
		return "search_query: "
	case ModeSimilarity:
		return "similarity: "
	default:
		return ""
	}
}

// Embedder turns a batch of texts into a batch of vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchEmbedder is the slice of the LLM client the embedder needs.
type BatchEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ModalEmbedder wraps the embeddings backend with a fixed mode.
type ModalEmbedder struct {
	backend BatchEmbedder
	mode    Mode
}

func NewModalEmbedder(backend BatchEmbedder, mode Mode) *ModalEmbedder {
	return &ModalEmbedder{backend: backend, mode: mode}
}

func (e *ModalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.mode.prefix() + t
	}

	vectors, err := e.backend.Embed(ctx, prefixed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	metrics.EmbeddingBatches.Inc()
	return vectors, nil
}
