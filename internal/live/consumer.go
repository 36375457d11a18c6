// Package live runs the streaming half of the pipeline: a poller that
// scrapes channel previews onto a Redis bus, a consumer that enriches
// posts off the bus and appends them to the datamap's JSONL file, and a
// feed that relays enriched records to API subscribers.
package live

import (
	"context"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/enrich"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/pkg/logger"
)

// Bus is the message transport between poller, consumer, and feed.
type Bus interface {
	SubscribeRaw(ctx context.Context, datamap string, deliver func(message.Raw)) error
	PublishEnriched(ctx context.Context, datamap string, msg message.Enriched) error
}

// Consumer enriches raw messages as they arrive and appends each result
// to the live JSONL file. Enrichment failures degrade to a neutral-ish
// fallback record so the stream never stalls on one bad post.
type Consumer struct {
	bus      Bus
	pipeline *enrich.Pipeline
	appender *enrich.Appender
	datamap  string
}

func NewConsumer(bus Bus, pipeline *enrich.Pipeline, appender *enrich.Appender, datamap string) *Consumer {
	return &Consumer{
		bus:      bus,
		pipeline: pipeline,
		appender: appender,
		datamap:  datamap,
	}
}

// Run consumes the bus until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	logger.Info("Live consumer started", zap.String("datamap", c.datamap))
	return c.bus.SubscribeRaw(ctx, c.datamap, func(raw message.Raw) {
		c.handle(ctx, raw)
	})
}

func (c *Consumer) handle(ctx context.Context, raw message.Raw) {
	metrics.LiveMessagesReceived.Inc()

	enriched, err := c.pipeline.Enrich(ctx, raw)
	if err != nil {
		logger.Warn("Live enrichment failed, using fallback",
			zap.String("account", raw.Account),
			zap.Int64("id", raw.ID),
			zap.Error(err))
		enriched = message.FromRaw(raw)
		enriched.Analysis = message.FallbackAnalysis()
	}

	// The append is the durable step; the broadcast is best effort.
	if err := c.appender.Append(enriched); err != nil {
		logger.Error("Failed to append live message",
			zap.String("account", raw.Account),
			zap.Int64("id", raw.ID),
			zap.Error(err))
		return
	}

	if err := c.bus.PublishEnriched(ctx, c.datamap, enriched); err != nil {
		logger.Warn("Failed to broadcast enriched message", zap.Error(err))
	}
}
