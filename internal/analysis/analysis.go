// Package analysis turns one message's text into a translation, a set of
// geolocated place mentions, and a sentiment distribution. Two strategies
// implement the same interface: a single combined generative call, and a
// decomposed path (language id, translation, sentiment classifier, NER +
// geocoding). The strategy is fixed at construction time.
package analysis

import (
	"context"
	"errors"

	"github.com/telefeed/backend/internal/geocode"
	"github.com/telefeed/backend/internal/message"
)

var (
	// ErrTranslation marks a failed or unusable translation/generation.
	ErrTranslation = errors.New("translation failed")
	// ErrScoring marks a failed sentiment classification.
	ErrScoring = errors.New("sentiment scoring failed")
)

// Hints bias the combined prompt towards the datamap's region and
// expected languages. Zero value means no bias.
type Hints struct {
	Region    string
	Languages []string
}

// Result is one message's full analysis. Geolocations may contain
// unresolved places; the enrichment pipeline filters those at
// aggregation.
type Result struct {
	Translation  string
	Geolocations []geocode.Place
	Sentiment    message.Sentiment
}

// Analyzer is the strategy interface shared by the combined and
// decomposed implementations.
type Analyzer interface {
	AnalyzeAndLocate(ctx context.Context, text string, hints Hints) (*Result, error)
}
