package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/vector"
	"github.com/telefeed/backend/pkg/logger"
)

// Client wraps a Milvus connection and hands out collections with the
// cosine metric fixed at creation time.
type Client struct {
	client client.Client
}

func NewClient(ctx context.Context, endpoint string) (*Client, error) {
	c, err := client.NewGrpcClient(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized", zap.String("endpoint", endpoint))

	return &Client{client: c}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// CreateCollection creates a new, empty collection. Creating a name that
// already exists is an error; reuse goes through OpenCollection.
func (c *Client) CreateCollection(ctx context.Context, name string, dim int) (*Collection, error) {
	has, err := c.client.HasCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return nil, fmt.Errorf("%w: %s", vector.ErrAlreadyExists, name)
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    "telegram message embeddings",
		Fields: []*entity.Field{
			{
				Name:       "row_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8192",
				},
			},
		},
	}

	if err := c.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to build index config: %w", err)
	}
	if err := c.client.CreateIndex(ctx, name, "embedding", idx, false); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	if err := c.client.LoadCollection(ctx, name, false); err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", name))

	return &Collection{client: c.client, name: name, dim: dim}, nil
}

// OpenCollection attaches to an existing collection.
func (c *Client) OpenCollection(ctx context.Context, name string, dim int) (*Collection, error) {
	has, err := c.client.HasCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}

	if err := c.client.LoadCollection(ctx, name, false); err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	return &Collection{client: c.client, name: name, dim: dim}, nil
}

// Collection implements vector.Collection on one Milvus collection.
type Collection struct {
	client client.Client
	name   string
	dim    int
}

func (m *Collection) Insert(ctx context.Context, ids []string, vectors [][]float32, texts []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) || len(ids) != len(texts) {
		return fmt.Errorf("insert column length mismatch: %d ids, %d vectors, %d texts", len(ids), len(vectors), len(texts))
	}

	_, err := m.client.Insert(
		ctx,
		m.name,
		"",
		entity.NewColumnVarChar("row_id", ids),
		entity.NewColumnFloatVector("embedding", m.dim, vectors),
		entity.NewColumnVarChar("text", texts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rows: %w", err)
	}

	if err := m.client.Flush(ctx, m.name, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Debug("Rows inserted into collection",
		zap.String("collection", m.name),
		zap.Int("count", len(ids)),
	)

	return nil
}

func (m *Collection) Search(ctx context.Context, queryVector []float32, k int) ([]vector.Match, error) {
	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResult, err := m.client.Search(
		ctx,
		m.name,
		[]string{},
		"",
		[]string{"row_id", "text"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"embedding",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]vector.Match, 0, k)
	for _, sr := range searchResult {
		idCol := sr.Fields.GetColumn("row_id")
		textCol := sr.Fields.GetColumn("text")
		for i := 0; i < sr.ResultCount; i++ {
			id, err := idCol.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read row_id: %w", err)
			}
			text, err := textCol.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read text: %w", err)
			}
			// Milvus reports cosine similarity; convert to the
			// cosine distance contract (ascending = nearest).
			matches = append(matches, vector.Match{
				ID:       id,
				Distance: 1 - sr.Scores[i],
				Text:     text,
			})
		}
	}

	return matches, nil
}

func (m *Collection) Count(ctx context.Context) (int64, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.name)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}

	rowCount, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}

	count, err := strconv.ParseInt(rowCount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad row_count %q: %w", rowCount, err)
	}

	return count, nil
}
