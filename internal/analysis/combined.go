package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/geocode"
	"github.com/telefeed/backend/internal/llm"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/pkg/logger"
)

// Completer is the slice of the LLM client the combined strategy needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Combined performs translation, geolocation, and sentiment scoring in a
// single structured generative call. The factual-event-only geolocation
// rule is enforced through prompt instructions with worked examples; it
// is a best-effort heuristic, not a hard guarantee.
type Combined struct {
	completer Completer
}

func NewCombined(completer Completer) *Combined {
	return &Combined{completer: completer}
}

const combinedSystemPrompt = `You are a multifunctional assistant capable of translating, geolocating, and analyzing sentiment from a given Telegram post.
Respond with a single JSON object and nothing else:
{"translation": string, "geolocations": [{"location_name": string, "latitude": number, "longitude": number}], "sentiment": {"negative": number, "neutral": number, "positive": number}}`

const combinedTaskPrompt = `%sTelegram Message:
` + "```" + `
%s
` + "```" + `

Tasks:

1. Translation:
    a. Identify the language of the post.%s
    b. Translate the post to English accurately.
    c. Maintain the original formatting, including paragraph breaks, lists, and emphasis.
    d. Ensure cultural references, idioms, and slang are appropriately translated or explained.
    e. Preserve the tone of the post, whether it is formal, informal, or conversational.
    f. Return only the translated post and not the language.

2. Geolocation:
    a. Read carefully to find any current factual events. Ignore speeches and announcements. Ignore very old events and future events.
    b. Read the post carefully to identify any mentioned locations, such as cities, landmarks, or addresses.
    c. Find the location (most precise if many) of the factual event based on the context provided.
    d. Provide the latitude and longitude of the identified location in decimal degrees format.

Examples:

Example 1:
Telegram Post:
` + "```" + `
A protest took place in front of the Al-Aqsa Mosque today, with hundreds of participants.
` + "```" + `
Geolocations: [{"location_name": "Al-Aqsa Mosque", "latitude": 31.776, "longitude": 35.235}]
Explanation: The event is a protest, which is a factual event that can be recorded on video.

Example 2:
Telegram Post:
` + "```" + `
The Prime Minister will deliver a speech tomorrow at the Knesset.
` + "```" + `
Geolocations: []
Explanation: The event is a future speech, which is not a factual event that has already occurred.

Example 3:
Telegram Post:
` + "```" + `
There are power outages in Rafah, in the southern Gaza Strip.
` + "```" + `
Geolocations: [{"location_name": "Rafah", "latitude": 31.294, "longitude": 34.248}]
Explanation: Only the most precise location is reported.

Example 4:
Telegram Post:
` + "```" + `
The President visited Jerusalem where he discussed the events that took place in Jenin last week.
` + "```" + `
Geolocations: [{"location_name": "Jerusalem", "latitude": 31.777, "longitude": 35.232}]
Explanation: Only the events that recently happened are geolocated.

3. Sentiment Analysis:
    a. Read the message carefully to understand its content and tone.
    b. Evaluate the sentiment of the message.
    c. Return the three probabilities without any explanation.
    d. Ensure the probabilities sum up to 1.0.`

type combinedOutput struct {
	Translation  string `json:"translation"`
	Geolocations []struct {
		LocationName string  `json:"location_name"`
		Latitude     float64 `json:"latitude"`
		Longitude    float64 `json:"longitude"`
	} `json:"geolocations"`
	Sentiment struct {
		Negative float64 `json:"negative"`
		Neutral  float64 `json:"neutral"`
		Positive float64 `json:"positive"`
	} `json:"sentiment"`
}

func (c *Combined) AnalyzeAndLocate(ctx context.Context, text string, hints Hints) (*Result, error) {
	resp, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: combinedSystemPrompt,
		UserPrompt:   buildCombinedPrompt(text, hints),
		Temperature:  0.1,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslation, err)
	}

	var out combinedOutput
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &out); err != nil {
		return nil, fmt.Errorf("%w: unparseable analysis output: %v", ErrTranslation, err)
	}

	if out.Translation == "" {
		return nil, fmt.Errorf("%w: empty translation", ErrTranslation)
	}

	sentiment, err := normalizeSentiment(message.Sentiment{
		Negative: out.Sentiment.Negative,
		Neutral:  out.Sentiment.Neutral,
		Positive: out.Sentiment.Positive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoring, err)
	}

	places := make([]geocode.Place, 0, len(out.Geolocations))
	for _, g := range out.Geolocations {
		place := geocode.Place{
			Name:      g.LocationName,
			Latitude:  g.Latitude,
			Longitude: g.Longitude,
			Resolved:  true,
		}
		loc := message.Geolocation{PlaceName: g.LocationName, Latitude: g.Latitude, Longitude: g.Longitude}
		if !loc.Valid() {
			logger.Warn("Model produced out-of-range coordinates",
				zap.String("place", g.LocationName),
				zap.Float64("lat", g.Latitude),
				zap.Float64("lon", g.Longitude),
			)
			place.Resolved = false
		}
		places = append(places, place)
	}

	return &Result{
		Translation:  out.Translation,
		Geolocations: places,
		Sentiment:    sentiment,
	}, nil
}

func buildCombinedPrompt(text string, hints Hints) string {
	var region string
	if hints.Region != "" {
		region = fmt.Sprintf("These messages are posted on channels based in %s.\n\n", hints.Region)
	}
	var languages string
	if len(hints.Languages) > 0 {
		languages = fmt.Sprintf(" It could be in %s.", strings.Join(hints.Languages, ", "))
	}
	return fmt.Sprintf(combinedTaskPrompt, region, text, languages)
}

// normalizeSentiment re-normalizes a distribution whose sum drifted from
// 1.0 and rejects one that is not a distribution at all.
func normalizeSentiment(s message.Sentiment) (message.Sentiment, error) {
	if err := s.Validate(); err == nil {
		return s, nil
	}

	sum := s.Negative + s.Neutral + s.Positive
	if sum <= 0 || math.IsNaN(sum) ||
		s.Negative < 0 || s.Neutral < 0 || s.Positive < 0 {
		return message.Sentiment{}, fmt.Errorf("unusable sentiment values (%v, %v, %v)", s.Negative, s.Neutral, s.Positive)
	}

	normalized := message.Sentiment{
		Negative: s.Negative / sum,
		Neutral:  s.Neutral / sum,
		Positive: s.Positive / sum,
	}
	if err := normalized.Validate(); err != nil {
		return message.Sentiment{}, err
	}
	return normalized, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
