package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telefeed/backend/internal/message"
)

func withCoords(coords ...[2]float64) message.Enriched {
	m := message.FromRaw(message.Raw{Account: "a"})
	m.Analysis = message.DefaultAnalysis()
	m.Analysis.Coordinates = coords
	return m
}

func withSentiment(s message.Sentiment) message.Enriched {
	m := message.FromRaw(message.Raw{Account: "a"})
	m.Analysis = message.DefaultAnalysis()
	m.Analysis.Sentiment = s
	return m
}

func TestHaversineKM(t *testing.T) {
	jerusalem := [2]float64{31.777, 35.232}
	telAviv := [2]float64{32.085, 34.782}

	d := HaversineKM(jerusalem, telAviv)
	// Roughly 54 km apart.
	assert.InDelta(t, 54, d, 3)

	assert.Zero(t, HaversineKM(jerusalem, jerusalem))
	assert.Equal(t, HaversineKM(jerusalem, telAviv), HaversineKM(telAviv, jerusalem))
}

func TestEvaluateGeolocationExactMatch(t *testing.T) {
	rafah := [2]float64{31.294, 34.248}
	predicted := []message.Enriched{withCoords(rafah)}
	labeled := []message.Enriched{withCoords(rafah)}

	report := EvaluateGeolocation(predicted, labeled)
	assert.Equal(t, 1, report.TruePositives)
	assert.Zero(t, report.FalsePositives)
	assert.Zero(t, report.FalseNegatives)
	assert.Equal(t, 1.0, report.Precision())
	assert.Equal(t, 1.0, report.Recall())
	assert.Zero(t, report.MedianDistanceKM)
}

func TestEvaluateGeolocationDistantPrediction(t *testing.T) {
	predicted := []message.Enriched{withCoords([2]float64{48.85, 2.35})} // Paris
	labeled := []message.Enriched{withCoords([2]float64{31.294, 34.248})}

	report := EvaluateGeolocation(predicted, labeled)
	assert.Zero(t, report.TruePositives)
	assert.Equal(t, 1, report.FalsePositives)
	assert.Equal(t, 1, report.FalseNegatives)
}

func TestEvaluateGeolocationGreedyMatching(t *testing.T) {
	near := [2]float64{31.30, 34.25}
	far := [2]float64{31.78, 35.23}

	// Two predictions, two labels; each label may absorb only one
	// prediction, greedily by smallest distance.
	predicted := []message.Enriched{withCoords(near, near)}
	labeled := []message.Enriched{withCoords(near, far)}

	report := EvaluateGeolocation(predicted, labeled)
	assert.Equal(t, 1, report.TruePositives)
	assert.Equal(t, 1, report.FalsePositives)
	assert.Equal(t, 1, report.FalseNegatives)
}

func TestEvaluateGeolocationMissingPrediction(t *testing.T) {
	predicted := []message.Enriched{withCoords()}
	labeled := []message.Enriched{withCoords([2]float64{31.294, 34.248})}

	report := EvaluateGeolocation(predicted, labeled)
	assert.Zero(t, report.TruePositives)
	assert.Equal(t, 1, report.FalseNegatives)
	assert.Zero(t, report.Precision())
}

func TestEvaluateGeolocationMedianDistance(t *testing.T) {
	base := [2]float64{31.0, 34.0}
	offA := [2]float64{31.05, 34.0}
	offB := [2]float64{31.2, 34.0}

	predicted := []message.Enriched{withCoords(offA), withCoords(offB)}
	labeled := []message.Enriched{withCoords(base), withCoords(base)}

	report := EvaluateGeolocation(predicted, labeled)
	require.Equal(t, 2, report.TruePositives)
	assert.Greater(t, report.MedianDistanceKM, 0.0)
	assert.Less(t, report.MedianDistanceKM, MatchThresholdKM)
	assert.False(t, math.IsNaN(report.MedianDistanceKM))
}

func TestEvaluateSentiment(t *testing.T) {
	predicted := []message.Enriched{
		withSentiment(message.Sentiment{Negative: 0.7, Neutral: 0.2, Positive: 0.1}),
		withSentiment(message.Sentiment{Negative: 0.1, Neutral: 0.8, Positive: 0.1}),
		withSentiment(message.Sentiment{Negative: 0.1, Neutral: 0.2, Positive: 0.7}),
	}
	labeled := []message.Enriched{
		withSentiment(message.Sentiment{Negative: 1}),
		withSentiment(message.Sentiment{Negative: 1}),
		withSentiment(message.Sentiment{Positive: 1}),
	}

	report := EvaluateSentiment(predicted, labeled)
	assert.Equal(t, 3, report.Messages)
	assert.Equal(t, 2, report.Correct)
	assert.InDelta(t, 2.0/3, report.Accuracy(), 1e-9)
}

func TestEvaluateSentimentSkipsUnEnriched(t *testing.T) {
	plain := message.FromRaw(message.Raw{Account: "a"})
	predicted := []message.Enriched{plain}
	labeled := []message.Enriched{withSentiment(message.Sentiment{Neutral: 1})}

	report := EvaluateSentiment(predicted, labeled)
	assert.Zero(t, report.Messages)
	assert.Zero(t, report.Accuracy())
}
