package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/pkg/logger"
	"go.uber.org/zap"
)

// Scraper fetches recent posts from a public channel's t.me/s/ preview
// page. It needs no API credentials, which makes it suitable for the
// live poller; the export extractor remains the path for full history.
type Scraper struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	location   *time.Location
}

// NewScraper creates a preview-page scraper. loc controls the timezone
// messages are stamped with; nil means UTC.
func NewScraper(timeout time.Duration, userAgent string, loc *time.Location) *Scraper {
	if loc == nil {
		loc = time.UTC
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://t.me/s",
		userAgent:  userAgent,
		location:   loc,
	}
}

// FetchChannel returns the posts currently visible on the channel's
// preview page, oldest first.
func (s *Scraper) FetchChannel(ctx context.Context, channel string) ([]message.Raw, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse preview page: %w", err)
	}

	var msgs []message.Raw
	doc.Find(".tgme_widget_message").Each(func(_ int, sel *goquery.Selection) {
		raw, ok := s.parsePost(channel, sel)
		if !ok {
			return
		}
		msgs = append(msgs, raw)
	})

	logger.Debug("Scraped channel preview",
		zap.String("channel", channel),
		zap.Int("messages", len(msgs)))

	return msgs, nil
}

func (s *Scraper) parsePost(channel string, sel *goquery.Selection) (message.Raw, bool) {
	// data-post is "channel/123"; the numeric part is the post id.
	post, ok := sel.Attr("data-post")
	if !ok {
		return message.Raw{}, false
	}
	idx := strings.LastIndex(post, "/")
	if idx < 0 {
		return message.Raw{}, false
	}
	id, err := strconv.ParseInt(post[idx+1:], 10, 64)
	if err != nil {
		return message.Raw{}, false
	}

	date := time.Now().In(s.location)
	if stamp, ok := sel.Find(".tgme_widget_message_date time").Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, stamp); err == nil {
			date = parsed.In(s.location)
		}
	}

	text := strings.TrimSpace(sel.Find(".tgme_widget_message_text").First().Text())

	return message.Raw{
		Account:  channel,
		ID:       id,
		Date:     date.Format(message.DateLayout),
		Text:     text,
		HasPhoto: sel.Find(".tgme_widget_message_photo_wrap").Length() > 0,
		HasVideo: sel.Find(".tgme_widget_message_video_player").Length() > 0,
	}, true
}
