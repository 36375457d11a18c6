package message

import (
	"encoding/json"
	"fmt"
	"math"
)

// DateLayout is the local-time layout used everywhere a message date is
// rendered or persisted.
const DateLayout = "2006-01-02 15:04:05"

// Raw is a single Telegram post as extracted from the source transport.
// It is immutable once extracted; Text may be empty.
type Raw struct {
	Account  string `json:"account"`
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Text     string `json:"text"`
	HasPhoto bool   `json:"has_photo"`
	HasVideo bool   `json:"has_video"`
}

// Geolocation is one resolved place mention.
type Geolocation struct {
	PlaceName string  `json:"place_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are inside the WGS84 envelope.
func (g Geolocation) Valid() bool {
	return g.Latitude >= -90 && g.Latitude <= 90 &&
		g.Longitude >= -180 && g.Longitude <= 180
}

// SentimentTolerance is the accepted floating-point slack on the
// probability-sum invariant.
const SentimentTolerance = 1e-3

// Sentiment is a 3-way probability distribution over message polarity.
type Sentiment struct {
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Positive float64 `json:"positive"`
}

// NeutralSentiment is the defined default for messages with no text.
func NeutralSentiment() Sentiment {
	return Sentiment{Negative: 0, Neutral: 1, Positive: 0}
}

// Validate checks that every component lies in [0,1] and that the three
// sum to 1 within SentimentTolerance.
func (s Sentiment) Validate() error {
	for _, v := range []float64{s.Negative, s.Neutral, s.Positive} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("sentiment component %v out of [0,1]", v)
		}
	}
	if sum := s.Negative + s.Neutral + s.Positive; math.Abs(sum-1) > SentimentTolerance {
		return fmt.Errorf("sentiment sum %v deviates from 1 by more than %v", sum, SentimentTolerance)
	}
	return nil
}

// Dominant returns the dominant polarity. Neutral wins unless strictly
// dominated by another component; negative beats positive on a tie.
func (s Sentiment) Dominant() string {
	if s.Neutral >= s.Negative && s.Neutral >= s.Positive {
		return "neutral"
	}
	if s.Negative >= s.Positive {
		return "negative"
	}
	return "positive"
}

// Analysis holds the enrichment fields of a message. A nil *Analysis on
// Enriched means the message has not been enriched yet.
type Analysis struct {
	TextEnglish string
	Geolocs     []string
	Coordinates [][2]float64
	Sentiment   Sentiment
}

// DefaultAnalysis is the record assigned to messages with empty text.
func DefaultAnalysis() *Analysis {
	return &Analysis{
		TextEnglish: "",
		Geolocs:     []string{},
		Coordinates: [][2]float64{},
		Sentiment:   NeutralSentiment(),
	}
}

// FallbackAnalysis is the record written on the streaming path when the
// analyzer returns nothing for a non-empty message: an uninformative,
// near-uniform distribution rather than a hole in the feed.
func FallbackAnalysis() *Analysis {
	return &Analysis{
		TextEnglish: "",
		Geolocs:     []string{},
		Coordinates: [][2]float64{},
		Sentiment:   Sentiment{Negative: 0.33, Neutral: 0.34, Positive: 0.33},
	}
}

// Locations zips the parallel geolocs/coordinates arrays back into
// Geolocation values.
func (a *Analysis) Locations() []Geolocation {
	locs := make([]Geolocation, 0, len(a.Geolocs))
	for i, name := range a.Geolocs {
		if i >= len(a.Coordinates) {
			break
		}
		locs = append(locs, Geolocation{
			PlaceName: name,
			Latitude:  a.Coordinates[i][0],
			Longitude: a.Coordinates[i][1],
		})
	}
	return locs
}

// Enriched is a Raw message plus its (possibly absent) analysis. The
// on-disk layout is flat, matching the datamap export format: enrichment
// keys sit next to the raw keys, and their presence doubles as the
// idempotence marker for resumable batch runs.
type Enriched struct {
	Raw
	Analysis *Analysis
}

// IsEnriched reports whether the enrichment fields are present.
func (m *Enriched) IsEnriched() bool {
	return m.Analysis != nil
}

type enrichedJSON struct {
	Account  string `json:"account"`
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Text     string `json:"text"`
	HasPhoto bool   `json:"has_photo"`
	HasVideo bool   `json:"has_video"`
	// Pointers so un-enriched records omit the keys entirely while
	// enriched records always carry them, empty slices included.
	TextEnglish *string       `json:"text_english,omitempty"`
	Geolocs     *[]string     `json:"geolocs,omitempty"`
	Coordinates *[][2]float64 `json:"coordinates,omitempty"`
	Negative    *float64      `json:"negative,omitempty"`
	Neutral     *float64      `json:"neutral,omitempty"`
	Positive    *float64      `json:"positive,omitempty"`
}

func (m Enriched) MarshalJSON() ([]byte, error) {
	out := enrichedJSON{
		Account:  m.Account,
		ID:       m.ID,
		Date:     m.Date,
		Text:     m.Text,
		HasPhoto: m.HasPhoto,
		HasVideo: m.HasVideo,
	}
	if m.Analysis != nil {
		a := m.Analysis
		out.TextEnglish = &a.TextEnglish
		geolocs := a.Geolocs
		if geolocs == nil {
			geolocs = []string{}
		}
		coords := a.Coordinates
		if coords == nil {
			coords = [][2]float64{}
		}
		out.Geolocs = &geolocs
		out.Coordinates = &coords
		out.Negative = &a.Sentiment.Negative
		out.Neutral = &a.Sentiment.Neutral
		out.Positive = &a.Sentiment.Positive
	}
	return json.Marshal(out)
}

func (m *Enriched) UnmarshalJSON(data []byte) error {
	var in enrichedJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Raw = Raw{
		Account:  in.Account,
		ID:       in.ID,
		Date:     in.Date,
		Text:     in.Text,
		HasPhoto: in.HasPhoto,
		HasVideo: in.HasVideo,
	}
	m.Analysis = nil
	if in.TextEnglish != nil {
		a := &Analysis{
			TextEnglish: *in.TextEnglish,
			Geolocs:     []string{},
			Coordinates: [][2]float64{},
		}
		if in.Geolocs != nil && *in.Geolocs != nil {
			a.Geolocs = *in.Geolocs
		}
		if in.Coordinates != nil && *in.Coordinates != nil {
			a.Coordinates = *in.Coordinates
		}
		if in.Negative != nil {
			a.Sentiment.Negative = *in.Negative
		}
		if in.Neutral != nil {
			a.Sentiment.Neutral = *in.Neutral
		}
		if in.Positive != nil {
			a.Sentiment.Positive = *in.Positive
		}
		m.Analysis = a
	}
	return nil
}

// FromRaw wraps a raw message into an un-enriched record.
func FromRaw(raw Raw) Enriched {
	return Enriched{Raw: raw}
}
