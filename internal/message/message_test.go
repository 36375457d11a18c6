package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentimentValidate(t *testing.T) {
	tests := []struct {
		name      string
		sentiment Sentiment
		wantErr   bool
	}{
		{"exact distribution", Sentiment{0.2, 0.5, 0.3}, false},
		{"within tolerance", Sentiment{0.2, 0.5, 0.3005}, false},
		{"sum too high", Sentiment{0.5, 0.5, 0.5}, true},
		{"sum too low", Sentiment{0.1, 0.1, 0.1}, true},
		{"negative component", Sentiment{-0.1, 0.6, 0.5}, true},
		{"component above one", Sentiment{0, 1.2, -0.2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sentiment.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSentimentDominant(t *testing.T) {
	tests := []struct {
		name      string
		sentiment Sentiment
		want      string
	}{
		{"clear negative", Sentiment{0.7, 0.2, 0.1}, "negative"},
		{"clear neutral", Sentiment{0.1, 0.8, 0.1}, "neutral"},
		{"clear positive", Sentiment{0.1, 0.2, 0.7}, "positive"},
		{"three-way tie goes neutral", Sentiment{1.0 / 3, 1.0 / 3, 1.0 / 3}, "neutral"},
		{"neutral ties negative", Sentiment{0.4, 0.4, 0.2}, "neutral"},
		{"neutral ties positive", Sentiment{0.2, 0.4, 0.4}, "neutral"},
		{"negative ties positive", Sentiment{0.45, 0.1, 0.45}, "negative"},
		{"empty-text default", NeutralSentiment(), "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sentiment.Dominant())
		})
	}
}

func TestDefaultAnalysis(t *testing.T) {
	a := DefaultAnalysis()

	assert.Empty(t, a.TextEnglish)
	assert.Empty(t, a.Geolocs)
	assert.Empty(t, a.Coordinates)
	assert.Equal(t, Sentiment{Negative: 0, Neutral: 1, Positive: 0}, a.Sentiment)
	assert.NoError(t, a.Sentiment.Validate())
}

func TestFallbackAnalysisIsValidDistribution(t *testing.T) {
	a := FallbackAnalysis()

	assert.NoError(t, a.Sentiment.Validate())
	assert.Equal(t, "neutral", a.Sentiment.Dominant())
}

func TestEnrichedJSONFlatLayout(t *testing.T) {
	m := Enriched{
		Raw: Raw{
			Account:  "alpha",
			ID:       42,
			Date:     "2024-03-31 14:05:00",
			Text:     "текст",
			HasPhoto: true,
		},
		Analysis: &Analysis{
			TextEnglish: "text",
			Geolocs:     []string{"Rafah"},
			Coordinates: [][2]float64{{31.294, 34.248}},
			Sentiment:   Sentiment{0.6, 0.3, 0.1},
		},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	// Enrichment keys sit next to the raw keys, no nesting.
	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "alpha", flat["account"])
	assert.Equal(t, "text", flat["text_english"])
	assert.Equal(t, 0.6, flat["negative"])
	assert.NotContains(t, flat, "analysis")
	assert.NotContains(t, flat, "sentiment")

	var back Enriched
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m, back)
}

func TestEnrichedJSONWithoutAnalysis(t *testing.T) {
	m := FromRaw(Raw{Account: "alpha", ID: 7, Date: "2024-01-01 00:00:00", Text: "hi"})
	require.False(t, m.IsEnriched())

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.NotContains(t, flat, "text_english")
	assert.NotContains(t, flat, "negative")

	var back Enriched
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.Analysis)
	assert.False(t, back.IsEnriched())
}

func TestEnrichedJSONEmptyGeolocsKeysPersist(t *testing.T) {
	// Enriched records with no resolved locations still write the
	// geolocs and coordinates keys as empty arrays, matching the
	// datamap export layout. Un-enriched records omit them.
	m := Enriched{
		Raw:      Raw{Account: "a", ID: 1, Date: "2024-01-01 00:00:00", Text: ""},
		Analysis: DefaultAnalysis(),
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var flat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &flat))
	require.Contains(t, flat, "geolocs")
	require.Contains(t, flat, "coordinates")
	assert.JSONEq(t, `[]`, string(flat["geolocs"]))
	assert.JSONEq(t, `[]`, string(flat["coordinates"]))

	var back Enriched
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, back.IsEnriched())
	assert.Equal(t, []string{}, back.Analysis.Geolocs)
	assert.Equal(t, [][2]float64{}, back.Analysis.Coordinates)

	raw, err := json.Marshal(FromRaw(m.Raw))
	require.NoError(t, err)
	var rawFlat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &rawFlat))
	assert.NotContains(t, rawFlat, "geolocs")
	assert.NotContains(t, rawFlat, "coordinates")
}

func TestEnrichedPresenceMarkerIsTextEnglish(t *testing.T) {
	// A record whose text_english is present but empty still counts as
	// enriched: empty-text messages legitimately carry "".
	data := []byte(`{"account":"a","id":1,"date":"2024-01-01 00:00:00","text":"","text_english":"","geolocs":[],"coordinates":[],"negative":0,"neutral":1,"positive":0}`)

	var m Enriched
	require.NoError(t, json.Unmarshal(data, &m))
	assert.True(t, m.IsEnriched())
	assert.Equal(t, Sentiment{0, 1, 0}, m.Analysis.Sentiment)
}

func TestGeolocationValid(t *testing.T) {
	assert.True(t, Geolocation{Latitude: 31.7, Longitude: 35.2}.Valid())
	assert.True(t, Geolocation{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Geolocation{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, Geolocation{Latitude: 0, Longitude: -181}.Valid())
}

func TestAnalysisLocations(t *testing.T) {
	a := Analysis{
		Geolocs:     []string{"Rafah", "Jenin"},
		Coordinates: [][2]float64{{31.294, 34.248}, {32.457, 35.286}},
	}

	locs := a.Locations()
	require.Len(t, locs, 2)
	assert.Equal(t, Geolocation{PlaceName: "Rafah", Latitude: 31.294, Longitude: 34.248}, locs[0])
	assert.Equal(t, "Jenin", locs[1].PlaceName)
}
