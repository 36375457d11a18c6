package analysis

import (
	"context"
	"fmt"

	"github.com/telefeed/backend/internal/geocode"
)

// Locator finds place mentions in English text and resolves them.
type Locator interface {
	ExtractLocations(ctx context.Context, text string) ([]geocode.Place, error)
}

// Decomposed runs the classical pipeline: translation, NER + geocoding on
// the translated text, and sentiment classification. Each stage fails
// independently; the stage errors carry the taxonomy sentinels so the
// caller can tell a translation failure from a scoring one.
type Decomposed struct {
	translator Translator
	scorer     SentimentScorer
	locator    Locator
}

func NewDecomposed(translator Translator, scorer SentimentScorer, locator Locator) *Decomposed {
	return &Decomposed{
		translator: translator,
		scorer:     scorer,
		locator:    locator,
	}
}

func (d *Decomposed) AnalyzeAndLocate(ctx context.Context, text string, hints Hints) (*Result, error) {
	translation, err := d.translator.Translate(ctx, text)
	if err != nil {
		return nil, err
	}

	places, err := d.locator.ExtractLocations(ctx, translation)
	if err != nil {
		return nil, fmt.Errorf("location extraction failed: %w", err)
	}

	sentiment, err := d.scorer.Score(ctx, translation)
	if err != nil {
		return nil, err
	}

	return &Result{
		Translation:  translation,
		Geolocations: places,
		Sentiment:    sentiment,
	}, nil
}
