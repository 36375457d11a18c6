package live

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telefeed/backend/internal/analysis"
	"github.com/telefeed/backend/internal/enrich"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/internal/telegram"
)

type fakeBus struct {
	raws      []message.Raw
	published []message.Enriched
}

func (f *fakeBus) SubscribeRaw(ctx context.Context, _ string, deliver func(message.Raw)) error {
	for _, raw := range f.raws {
		deliver(raw)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeBus) PublishEnriched(_ context.Context, _ string, msg message.Enriched) error {
	f.published = append(f.published, msg)
	return nil
}

type flakyAnalyzer struct {
	failText string
}

func (f *flakyAnalyzer) AnalyzeAndLocate(_ context.Context, text string, _ analysis.Hints) (*analysis.Result, error) {
	if text == f.failText {
		return nil, analysis.ErrTranslation
	}
	return &analysis.Result{
		Translation: "en: " + text,
		Sentiment:   message.Sentiment{Negative: 0.2, Neutral: 0.5, Positive: 0.3},
	}, nil
}

func TestConsumerAppendsAndBroadcasts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jsonl")
	appender, err := enrich.NewAppender(path)
	require.NoError(t, err)
	defer appender.Close()

	bus := &fakeBus{raws: []message.Raw{
		{Account: "a", ID: 1, Date: "2024-01-01 00:00:00", Text: "good post"},
		{Account: "a", ID: 2, Date: "2024-01-01 00:01:00", Text: "broken post"},
	}}
	pipeline := enrich.NewPipeline(&flakyAnalyzer{failText: "broken post"}, analysis.Hints{})
	consumer := NewConsumer(bus, pipeline, appender, "test")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = consumer.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	msgs, err := telegram.ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "en: good post", msgs[0].Analysis.TextEnglish)

	// The failed message lands with the fallback distribution instead
	// of leaving a hole in the feed.
	require.True(t, msgs[1].IsEnriched())
	assert.Equal(t, message.Sentiment{Negative: 0.33, Neutral: 0.34, Positive: 0.33}, msgs[1].Analysis.Sentiment)

	// Both appended records were also rebroadcast.
	assert.Len(t, bus.published, 2)
}

type fakeFetcher struct {
	posts []message.Raw
	calls int
}

func (f *fakeFetcher) FetchChannel(context.Context, string) ([]message.Raw, error) {
	f.calls++
	return f.posts, nil
}

type fakePublisher struct {
	seen      map[string]bool
	published []message.Raw
}

func (f *fakePublisher) PublishRaw(_ context.Context, _ string, raw message.Raw) error {
	f.published = append(f.published, raw)
	return nil
}

func (f *fakePublisher) MarkSeen(_ context.Context, _ string, account string, id int64) (bool, error) {
	key := fmt.Sprintf("%s/%d", account, id)
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func TestPollerPublishesOnlyFreshPosts(t *testing.T) {
	fetcher := &fakeFetcher{posts: []message.Raw{
		{Account: "c", ID: 1, Text: "one"},
		{Account: "c", ID: 2, Text: "two"},
	}}
	publisher := &fakePublisher{seen: make(map[string]bool)}
	poller := NewPoller(fetcher, publisher, "test", []string{"c"}, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := poller.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Several cycles ran but each post published exactly once.
	assert.GreaterOrEqual(t, fetcher.calls, 2)
	assert.Len(t, publisher.published, 2)
}

func TestFeedFanOut(t *testing.T) {
	feed := NewFeed(nil, "test")

	sub, cancel := feed.Subscribe()
	defer cancel()

	msg := message.FromRaw(message.Raw{Account: "a", ID: 1})
	feed.broadcast(msg)

	select {
	case got := <-sub:
		assert.EqualValues(t, 1, got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive broadcast")
	}
}

func TestFeedCancelledSubscriberStopsReceiving(t *testing.T) {
	feed := NewFeed(nil, "test")

	sub, cancel := feed.Subscribe()
	cancel()

	feed.broadcast(message.FromRaw(message.Raw{ID: 1}))

	select {
	case <-sub:
		t.Fatal("cancelled subscriber still received a message")
	case <-time.After(20 * time.Millisecond):
	}
}
