// Package evaluation scores enrichment output against hand-labeled
// ground truth.
package evaluation

import (
	"math"
	"sort"

	"github.com/telefeed/backend/internal/message"
)

const earthRadiusKM = 6371.0

// MatchThresholdKM is how close a predicted coordinate must be to a
// ground-truth coordinate to count as the same place.
const MatchThresholdKM = 50.0

// GeoReport summarizes geolocation quality over a labeled set.
type GeoReport struct {
	Messages         int
	TruePositives    int
	FalsePositives   int
	FalseNegatives   int
	MedianDistanceKM float64
}

// Precision is TP / (TP + FP); zero when nothing was predicted.
func (r GeoReport) Precision() float64 {
	if r.TruePositives+r.FalsePositives == 0 {
		return 0
	}
	return float64(r.TruePositives) / float64(r.TruePositives+r.FalsePositives)
}

// Recall is TP / (TP + FN); zero when nothing was labeled.
func (r GeoReport) Recall() float64 {
	if r.TruePositives+r.FalseNegatives == 0 {
		return 0
	}
	return float64(r.TruePositives) / float64(r.TruePositives+r.FalseNegatives)
}

// HaversineKM returns the great-circle distance between two points.
func HaversineKM(a, b [2]float64) float64 {
	lat1 := a[0] * math.Pi / 180
	lat2 := b[0] * math.Pi / 180
	dLat := (b[0] - a[0]) * math.Pi / 180
	dLon := (b[1] - a[1]) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

// EvaluateGeolocation compares predicted coordinates against labels,
// message by message. Within a message, predictions are matched to
// labels greedily by smallest distance; each label matches at most one
// prediction. A match farther than MatchThresholdKM counts as both a
// false positive and a false negative.
func EvaluateGeolocation(predicted, labeled []message.Enriched) GeoReport {
	report := GeoReport{Messages: len(predicted)}

	var matchedDistances []float64
	for i := range predicted {
		if i >= len(labeled) {
			break
		}
		preds := coordinates(predicted[i])
		truth := coordinates(labeled[i])

		tp, distances := matchGreedy(preds, truth)
		report.TruePositives += tp
		report.FalsePositives += len(preds) - tp
		report.FalseNegatives += len(truth) - tp
		matchedDistances = append(matchedDistances, distances...)
	}

	report.MedianDistanceKM = median(matchedDistances)
	return report
}

func coordinates(m message.Enriched) [][2]float64 {
	if m.Analysis == nil {
		return nil
	}
	return m.Analysis.Coordinates
}

// matchGreedy pairs predictions with truth points in ascending distance
// order, consuming each point once, and counts pairs within threshold.
func matchGreedy(preds, truth [][2]float64) (int, []float64) {
	type pair struct {
		pred, truth int
		dist        float64
	}
	var pairs []pair
	for p := range preds {
		for t := range truth {
			pairs = append(pairs, pair{p, t, HaversineKM(preds[p], truth[t])})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })

	usedPred := make(map[int]bool)
	usedTruth := make(map[int]bool)
	matched := 0
	var distances []float64
	for _, p := range pairs {
		if usedPred[p.pred] || usedTruth[p.truth] {
			continue
		}
		usedPred[p.pred] = true
		usedTruth[p.truth] = true
		if p.dist <= MatchThresholdKM {
			matched++
			distances = append(distances, p.dist)
		}
	}
	return matched, distances
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// SentimentReport summarizes dominant-class agreement with labels.
type SentimentReport struct {
	Messages int
	Correct  int
}

func (r SentimentReport) Accuracy() float64 {
	if r.Messages == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Messages)
}

// EvaluateSentiment compares the dominant sentiment class of each
// prediction against its label. Records missing analysis on either side
// are skipped.
func EvaluateSentiment(predicted, labeled []message.Enriched) SentimentReport {
	var report SentimentReport
	for i := range predicted {
		if i >= len(labeled) {
			break
		}
		if predicted[i].Analysis == nil || labeled[i].Analysis == nil {
			continue
		}
		report.Messages++
		if predicted[i].Analysis.Sentiment.Dominant() == labeled[i].Analysis.Sentiment.Dominant() {
			report.Correct++
		}
	}
	return report
}
