package live

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/pkg/logger"
)

// Fetcher retrieves the posts currently visible on a channel's public
// preview page.
type Fetcher interface {
	FetchChannel(ctx context.Context, channel string) ([]message.Raw, error)
}

// Publisher pushes raw messages onto the bus and tracks which post ids
// were already published.
type Publisher interface {
	PublishRaw(ctx context.Context, datamap string, raw message.Raw) error
	MarkSeen(ctx context.Context, datamap, account string, id int64) (bool, error)
}

// Poller scrapes each configured channel on an interval and publishes
// posts it has not seen before.
type Poller struct {
	fetcher   Fetcher
	publisher Publisher
	datamap   string
	channels  []string
	interval  time.Duration
}

func NewPoller(fetcher Fetcher, publisher Publisher, datamap string, channels []string, interval time.Duration) *Poller {
	return &Poller{
		fetcher:   fetcher,
		publisher: publisher,
		datamap:   datamap,
		channels:  channels,
		interval:  interval,
	}
}

// Run polls until the context is cancelled. The first cycle starts
// immediately.
func (p *Poller) Run(ctx context.Context) error {
	logger.Info("Live poller started",
		zap.String("datamap", p.datamap),
		zap.Strings("channels", p.channels),
		zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	for _, channel := range p.channels {
		if err := p.pollChannel(ctx, channel); err != nil {
			logger.Warn("Channel poll failed",
				zap.String("channel", channel),
				zap.Error(err))
		}
	}
}

func (p *Poller) pollChannel(ctx context.Context, channel string) error {
	msgs, err := p.fetcher.FetchChannel(ctx, channel)
	if err != nil {
		return err
	}

	published := 0
	for _, raw := range msgs {
		fresh, err := p.publisher.MarkSeen(ctx, p.datamap, raw.Account, raw.ID)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}
		if err := p.publisher.PublishRaw(ctx, p.datamap, raw); err != nil {
			return err
		}
		published++
	}

	if published > 0 {
		logger.Info("Published new posts",
			zap.String("channel", channel),
			zap.Int("count", published))
	}
	return nil
}
