package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/pkg/logger"
	"github.com/telefeed/backend/pkg/retry"
)

// SentimentScorer produces a 3-way sentiment distribution for English
// text.
type SentimentScorer interface {
	Score(ctx context.Context, textEnglish string) (message.Sentiment, error)
}

// HTTPScorer calls a classifier inference endpoint that returns raw
// logits in (negative, neutral, positive) order and normalizes them
// locally with softmax.
type HTTPScorer struct {
	endpoint    string
	httpClient  *http.Client
	retryConfig retry.Config
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Logits []float64 `json:"logits"`
}

func NewHTTPScorer(endpoint string, timeout time.Duration) *HTTPScorer {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPScorer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		retryConfig: retry.Config{
			MaxAttempts:     3,
			InitialDelay:    500 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			Multiplier:      2.0,
			JitterFraction:  0.1,
			RetryableErrors: []error{retry.ErrRateLimited},
			Logger:          logger.GetLogger(),
		},
	}
}

func (s *HTTPScorer) Score(ctx context.Context, textEnglish string) (message.Sentiment, error) {
	var sentiment message.Sentiment

	err := retry.Do(ctx, s.retryConfig, func() error {
		var innerErr error
		sentiment, innerErr = s.score(ctx, textEnglish)
		return innerErr
	})
	if err != nil {
		return message.Sentiment{}, fmt.Errorf("%w: %v", ErrScoring, err)
	}

	return sentiment, nil
}

func (s *HTTPScorer) score(ctx context.Context, text string) (message.Sentiment, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return message.Sentiment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return message.Sentiment{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return message.Sentiment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return message.Sentiment{}, fmt.Errorf("%w: classifier status %d", retry.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return message.Sentiment{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return message.Sentiment{}, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if len(out.Logits) != 3 {
		return message.Sentiment{}, fmt.Errorf("expected 3 logits, got %d", len(out.Logits))
	}

	probs := softmax(out.Logits)
	sentiment := message.Sentiment{
		Negative: probs[0],
		Neutral:  probs[1],
		Positive: probs[2],
	}
	if err := sentiment.Validate(); err != nil {
		return message.Sentiment{}, err
	}

	return sentiment, nil
}
