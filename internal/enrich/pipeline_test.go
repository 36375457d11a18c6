package enrich

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telefeed/backend/internal/analysis"
	"github.com/telefeed/backend/internal/geocode"
	"github.com/telefeed/backend/internal/message"
)

type fakeAnalyzer struct {
	calls  int
	failOn map[string]bool
}

func (f *fakeAnalyzer) AnalyzeAndLocate(_ context.Context, text string, _ analysis.Hints) (*analysis.Result, error) {
	f.calls++
	if f.failOn[text] {
		return nil, analysis.ErrTranslation
	}
	return &analysis.Result{
		Translation: "english: " + text,
		Geolocations: []geocode.Place{
			{Name: "Rafah", Latitude: 31.294, Longitude: 34.248, Resolved: true},
			{Name: "Unknownville", Resolved: false},
		},
		Sentiment: message.Sentiment{Negative: 0.2, Neutral: 0.5, Positive: 0.3},
	}, nil
}

func rawMsg(id int64, text string) message.Enriched {
	return message.FromRaw(message.Raw{
		Account: "acct",
		ID:      id,
		Date:    "2024-01-01 12:00:00",
		Text:    text,
	})
}

func TestEnrichEmptyTextShortCircuits(t *testing.T) {
	az := &fakeAnalyzer{}
	p := NewPipeline(az, analysis.Hints{})

	enriched, err := p.Enrich(context.Background(), message.Raw{Account: "a", ID: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, az.calls)
	require.True(t, enriched.IsEnriched())
	assert.Equal(t, message.Sentiment{Negative: 0, Neutral: 1, Positive: 0}, enriched.Analysis.Sentiment)
	assert.Empty(t, enriched.Analysis.TextEnglish)
}

func TestEnrichDropsUnresolvedPlaces(t *testing.T) {
	p := NewPipeline(&fakeAnalyzer{}, analysis.Hints{})

	enriched, err := p.Enrich(context.Background(), message.Raw{Account: "a", ID: 1, Text: "hi"})
	require.NoError(t, err)

	require.True(t, enriched.IsEnriched())
	assert.Equal(t, []string{"Rafah"}, enriched.Analysis.Geolocs)
	assert.Equal(t, [][2]float64{{31.294, 34.248}}, enriched.Analysis.Coordinates)
}

func TestEnrichAllSkipsAlreadyEnriched(t *testing.T) {
	az := &fakeAnalyzer{}
	p := NewPipeline(az, analysis.Hints{})
	out := filepath.Join(t.TempDir(), "gemini.json")

	msgs := []message.Enriched{rawMsg(1, "one"), rawMsg(2, "two"), rawMsg(3, "three")}
	msgs[0].Analysis = message.DefaultAnalysis()
	msgs[1].Analysis = message.DefaultAnalysis()

	require.NoError(t, p.EnrichAll(context.Background(), msgs, out))

	// Only the un-enriched record reaches the analyzer.
	assert.Equal(t, 1, az.calls)
	for _, m := range msgs {
		assert.True(t, m.IsEnriched())
	}
}

func TestEnrichAllFullyEnrichedInputIsFree(t *testing.T) {
	az := &fakeAnalyzer{}
	p := NewPipeline(az, analysis.Hints{})
	out := filepath.Join(t.TempDir(), "gemini.json")

	msgs := []message.Enriched{rawMsg(1, "one"), rawMsg(2, "two")}
	for i := range msgs {
		msgs[i].Analysis = message.DefaultAnalysis()
	}

	require.NoError(t, p.EnrichAll(context.Background(), msgs, out))
	assert.Equal(t, 0, az.calls)
}

func TestEnrichAllContinuesPastFailures(t *testing.T) {
	az := &fakeAnalyzer{failOn: map[string]bool{"two": true}}
	p := NewPipeline(az, analysis.Hints{})
	out := filepath.Join(t.TempDir(), "gemini.json")

	msgs := []message.Enriched{rawMsg(1, "one"), rawMsg(2, "two"), rawMsg(3, "three")}
	require.NoError(t, p.EnrichAll(context.Background(), msgs, out))

	assert.True(t, msgs[0].IsEnriched())
	assert.False(t, msgs[1].IsEnriched(), "failed message stays un-enriched for the next run")
	assert.True(t, msgs[2].IsEnriched())

	// The persisted batch reflects the same mixed state.
	persisted, err := ReadBatch(out)
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	assert.False(t, persisted[1].IsEnriched())
}

func TestEnrichAllFlushesAtInterval(t *testing.T) {
	az := &fakeAnalyzer{failOn: map[string]bool{"three": true, "four": true}}
	p := NewPipeline(az, analysis.Hints{}, WithFlushInterval(2))
	out := filepath.Join(t.TempDir(), "gemini.json")

	// With a flush interval of 2 the run writes intermediate snapshots,
	// and the final file holds all five records, failures included.
	msgs := []message.Enriched{
		rawMsg(1, "one"), rawMsg(2, "two"), rawMsg(3, "three"),
		rawMsg(4, "four"), rawMsg(5, "five"),
	}
	require.NoError(t, p.EnrichAll(context.Background(), msgs, out))

	persisted, err := ReadBatch(out)
	require.NoError(t, err)
	assert.Len(t, persisted, 5)
}

func TestEnrichAllFlushesOnCancellation(t *testing.T) {
	az := &fakeAnalyzer{}
	p := NewPipeline(az, analysis.Hints{})
	out := filepath.Join(t.TempDir(), "gemini.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs := []message.Enriched{rawMsg(1, "one")}
	err := p.EnrichAll(ctx, msgs, out)
	assert.ErrorIs(t, err, context.Canceled)

	// The partial snapshot still landed on disk.
	persisted, readErr := ReadBatch(out)
	require.NoError(t, readErr)
	assert.Len(t, persisted, 1)
}

func TestWriteBatchKeepsNonLatinText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gemini.json")
	msgs := []message.Enriched{rawMsg(1, "הפגנה בירושלים <היום>")}

	require.NoError(t, WriteBatch(out, msgs))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "הפגנה בירושלים <היום>")
	assert.NotContains(t, string(data), `<`)

	back, err := ReadBatch(out)
	require.NoError(t, err)
	assert.Equal(t, msgs, back)
}

func TestAppenderWritesWholeLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jsonl")
	ap, err := NewAppender(path)
	require.NoError(t, err)
	defer ap.Close()

	first := rawMsg(1, "first")
	first.Analysis = message.DefaultAnalysis()
	second := rawMsg(2, "second")

	require.NoError(t, ap.Append(first))
	require.NoError(t, ap.Append(second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"text":"first"`)
	assert.Contains(t, lines[1], `"text":"second"`)
}

func TestReadBatchMissingFile(t *testing.T) {
	_, err := ReadBatch(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
