package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telefeed/backend/internal/geocode"
	"github.com/telefeed/backend/internal/message"
)

type fakeTranslator struct {
	out string
	err error
}

func (f *fakeTranslator) Translate(context.Context, string) (string, error) {
	return f.out, f.err
}

type fakeScorer struct {
	out      message.Sentiment
	err      error
	lastText string
}

func (f *fakeScorer) Score(_ context.Context, text string) (message.Sentiment, error) {
	f.lastText = text
	return f.out, f.err
}

type fakeLocator struct {
	out      []geocode.Place
	err      error
	lastText string
}

func (f *fakeLocator) ExtractLocations(_ context.Context, text string) ([]geocode.Place, error) {
	f.lastText = text
	return f.out, f.err
}

func TestDecomposedRunsStagesOnTranslation(t *testing.T) {
	scorer := &fakeScorer{out: message.Sentiment{Negative: 0.1, Neutral: 0.8, Positive: 0.1}}
	locator := &fakeLocator{out: []geocode.Place{{Name: "Jenin", Latitude: 32.457, Longitude: 35.286, Resolved: true}}}
	d := NewDecomposed(&fakeTranslator{out: "translated text"}, scorer, locator)

	result, err := d.AnalyzeAndLocate(context.Background(), "исходный текст", Hints{})
	require.NoError(t, err)

	// NER and scoring both operate on the English translation, never on
	// the source text.
	assert.Equal(t, "translated text", locator.lastText)
	assert.Equal(t, "translated text", scorer.lastText)

	assert.Equal(t, "translated text", result.Translation)
	assert.Equal(t, locator.out, result.Geolocations)
	assert.Equal(t, scorer.out, result.Sentiment)
}

func TestDecomposedTranslationFailureStopsPipeline(t *testing.T) {
	locator := &fakeLocator{}
	d := NewDecomposed(&fakeTranslator{err: ErrTranslation}, &fakeScorer{}, locator)

	_, err := d.AnalyzeAndLocate(context.Background(), "text", Hints{})
	assert.ErrorIs(t, err, ErrTranslation)
	assert.Empty(t, locator.lastText)
}

func TestDecomposedScoringFailure(t *testing.T) {
	d := NewDecomposed(
		&fakeTranslator{out: "ok"},
		&fakeScorer{err: ErrScoring},
		&fakeLocator{},
	)

	_, err := d.AnalyzeAndLocate(context.Background(), "text", Hints{})
	assert.ErrorIs(t, err, ErrScoring)
}

func TestDecomposedLocatorFailure(t *testing.T) {
	sentinel := errors.New("ner blew up")
	d := NewDecomposed(
		&fakeTranslator{out: "ok"},
		&fakeScorer{},
		&fakeLocator{err: sentinel},
	)

	_, err := d.AnalyzeAndLocate(context.Background(), "text", Hints{})
	assert.ErrorIs(t, err, sentinel)
}
