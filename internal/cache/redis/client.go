package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/pkg/logger"
)

// Client caches embeddings and carries the raw-message bus for live
// ingestion.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	if err := c.client.Set(ctx, fmt.Sprintf("embedding:%s", textHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding cache: %w", err)
	}

	return nil
}

func (c *Client) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("embedding:%s", textHash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	return embedding, true, nil
}

// rawChannel names the pub/sub channel carrying raw messages for one
// datamap.
func rawChannel(datamap string) string {
	return fmt.Sprintf("telefeed:raw:%s", datamap)
}

// PublishRaw puts one raw message on the datamap's ingestion bus.
func (c *Client) PublishRaw(ctx context.Context, datamap string, raw message.Raw) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw message: %w", err)
	}

	if err := c.client.Publish(ctx, rawChannel(datamap), data).Err(); err != nil {
		return fmt.Errorf("failed to publish raw message: %w", err)
	}

	return nil
}

// SubscribeRaw delivers raw messages one at a time until the context is
// cancelled. Malformed payloads are logged and skipped.
func (c *Client) SubscribeRaw(ctx context.Context, datamap string, deliver func(message.Raw)) error {
	sub := c.client.Subscribe(ctx, rawChannel(datamap))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("raw message subscription closed")
			}
			var raw message.Raw
			if err := json.Unmarshal([]byte(msg.Payload), &raw); err != nil {
				logger.Warn("Dropping malformed raw message", zap.Error(err))
				continue
			}
			deliver(raw)
		}
	}
}

// enrichedChannel names the pub/sub channel carrying enriched messages
// out of the live consumer, for API processes to fan out to clients.
func enrichedChannel(datamap string) string {
	return fmt.Sprintf("telefeed:enriched:%s", datamap)
}

// PublishEnriched announces a freshly appended enriched message.
func (c *Client) PublishEnriched(ctx context.Context, datamap string, msg message.Enriched) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal enriched message: %w", err)
	}

	if err := c.client.Publish(ctx, enrichedChannel(datamap), data).Err(); err != nil {
		return fmt.Errorf("failed to publish enriched message: %w", err)
	}

	return nil
}

// SubscribeEnriched delivers enriched messages one at a time until the
// context is cancelled.
func (c *Client) SubscribeEnriched(ctx context.Context, datamap string, deliver func(message.Enriched)) error {
	sub := c.client.Subscribe(ctx, enrichedChannel(datamap))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("enriched message subscription closed")
			}
			var enriched message.Enriched
			if err := json.Unmarshal([]byte(msg.Payload), &enriched); err != nil {
				logger.Warn("Dropping malformed enriched message", zap.Error(err))
				continue
			}
			deliver(enriched)
		}
	}
}

// SeenKey tracks which message ids the live poller already published so
// a scrape cycle does not re-enqueue old posts.
func (c *Client) MarkSeen(ctx context.Context, datamap, account string, id int64) (bool, error) {
	added, err := c.client.SAdd(ctx, fmt.Sprintf("telefeed:seen:%s:%s", datamap, account), id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message seen: %w", err)
	}
	return added == 1, nil
}
