package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/telefeed/backend/pkg/logger"
	"github.com/telefeed/backend/pkg/retry"
)

// Client resolves free-form place names against a Nominatim instance.
// Every network lookup passes through a token bucket so the public
// endpoint's usage policy (1 request/second) is respected regardless of
// how many goroutines share the client.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	retryConfig retry.Config
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func NewClient(baseURL, userAgent string, requestsPerSecond float64, timeout time.Duration) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retryConfig: retry.Config{
			MaxAttempts:     3,
			InitialDelay:    time.Second,
			MaxDelay:        10 * time.Second,
			Multiplier:      2.0,
			JitterFraction:  0.1,
			RetryableErrors: []error{retry.ErrRateLimited},
			Logger:          logger.GetLogger(),
		},
	}
}

// Resolve looks up one place name. found is false when the geocoder knows
// nothing about the name; that is not an error.
func (c *Client) Resolve(ctx context.Context, name string) (lat, lon float64, found bool, err error) {
	err = retry.Do(ctx, c.retryConfig, func() error {
		var innerErr error
		lat, lon, found, innerErr = c.lookup(ctx, name)
		return innerErr
	})
	return lat, lon, found, err
}

func (c *Client) lookup(ctx context.Context, name string) (float64, float64, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, false, err
	}

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, url.Values{
		"q":      {name},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return 0, 0, false, fmt.Errorf("%w: geocode status %d", retry.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, false, fmt.Errorf("geocode returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, false, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	if len(results) == 0 {
		logger.Debug("Place name unresolved", zap.String("name", name))
		return 0, 0, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("bad latitude in geocode response: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("bad longitude in geocode response: %w", err)
	}

	return lat, lon, true, nil
}
