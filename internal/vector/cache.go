package vector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/pkg/logger"
	"github.com/telefeed/backend/pkg/utils"
)

// EmbeddingCache is the slice of the redis client the cached embedder
// needs.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// CachedEmbedder memoizes embeddings in redis, keyed by mode and text,
// so re-indexing a datamap does not re-bill unchanged messages. Cache
// failures degrade to the backend, never to an error.
type CachedEmbedder struct {
	inner Embedder
	cache EmbeddingCache
	mode  Mode
	ttl   time.Duration
}

func NewCachedEmbedder(inner Embedder, cache EmbeddingCache, mode Mode, ttl time.Duration) *CachedEmbedder {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &CachedEmbedder{inner: inner, cache: cache, mode: mode, ttl: ttl}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		vec, ok, err := c.cache.GetEmbedding(ctx, c.key(text))
		if err != nil {
			logger.Warn("Embedding cache read failed", zap.Error(err))
		}
		if ok {
			metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
			results[i] = vec
			continue
		}
		metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vectors, err := c.inner.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, vec := range vectors {
			results[missingIdx[j]] = vec
			if err := c.cache.SetEmbedding(ctx, c.key(missing[j]), vec, c.ttl); err != nil {
				logger.Warn("Embedding cache write failed", zap.Error(err))
			}
		}
	}

	return results, nil
}

func (c *CachedEmbedder) key(text string) string {
	return utils.HashString(string(c.mode) + ":" + text)
}
