package similarity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telefeed/backend/internal/vector"
)

type fakeRetriever struct {
	matches []vector.Match
	calls   int
	lastK   int
}

func (f *fakeRetriever) Query(_ context.Context, _ string, k int) ([]vector.Match, error) {
	f.calls++
	f.lastK = k
	return f.matches, nil
}

func TestFindSimilarBlankReference(t *testing.T) {
	retriever := &fakeRetriever{}
	svc := NewService(retriever)

	for _, ref := range []string{"", "  ", "\t\n"} {
		_, err := svc.FindSimilar(context.Background(), ref, 10)
		assert.ErrorIs(t, err, ErrEmptyReference)
	}
	assert.Equal(t, 0, retriever.calls, "blank reference never touches the index")
}

func TestFindSimilarReturnsRowIDs(t *testing.T) {
	retriever := &fakeRetriever{matches: []vector.Match{
		{ID: "12", Distance: 0.01},
		{ID: "3", Distance: 0.08},
		{ID: "450", Distance: 0.30},
	}}
	svc := NewService(retriever)

	rows, err := svc.FindSimilar(context.Background(), "reference text", 3)
	require.NoError(t, err)

	// Order follows ascending distance, not numeric id order.
	assert.Equal(t, []int{12, 3, 450}, rows)
}

func TestFindSimilarDefaultTopK(t *testing.T) {
	retriever := &fakeRetriever{}
	svc := NewService(retriever)

	_, err := svc.FindSimilar(context.Background(), "reference", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, retriever.lastK)
}

func TestFindSimilarBadID(t *testing.T) {
	retriever := &fakeRetriever{matches: []vector.Match{{ID: "not-a-number"}}}
	svc := NewService(retriever)

	_, err := svc.FindSimilar(context.Background(), "reference", 1)
	assert.Error(t, err)
}

func TestDocumentRendering(t *testing.T) {
	assert.Equal(t, "[Date: 2024-03-31 14:05:00] Clashes reported.",
		Document("2024-03-31 14:05:00", "Clashes reported."))
}
