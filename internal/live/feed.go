package live

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/pkg/logger"
)

// EnrichedSource delivers enriched messages published by a consumer,
// possibly in another process.
type EnrichedSource interface {
	SubscribeEnriched(ctx context.Context, datamap string, deliver func(message.Enriched)) error
}

// Feed relays enriched messages from the bus to in-process subscribers,
// typically websocket connections.
type Feed struct {
	source  EnrichedSource
	datamap string

	mu   sync.Mutex
	subs map[chan message.Enriched]struct{}
}

func NewFeed(source EnrichedSource, datamap string) *Feed {
	return &Feed{
		source:  source,
		datamap: datamap,
		subs:    make(map[chan message.Enriched]struct{}),
	}
}

// Run relays bus messages until the context is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	logger.Info("Live feed started", zap.String("datamap", f.datamap))
	return f.source.SubscribeEnriched(ctx, f.datamap, f.broadcast)
}

// Subscribe returns a channel receiving every enriched message relayed
// after this call. Slow receivers drop messages rather than block the
// feed.
func (f *Feed) Subscribe() (<-chan message.Enriched, func()) {
	ch := make(chan message.Enriched, 64)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Feed) broadcast(m message.Enriched) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- m:
		default:
		}
	}
}
