package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telefeed/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.InitSchema())
	return client
}

func TestQueryHistoryRoundtrip(t *testing.T) {
	client := newTestClient(t)

	base := time.Now().Truncate(time.Second)
	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, client.InsertQueryRecord(&models.QueryRecord{
			ID:           q,
			Question:     q + " question",
			Answer:       q + " answer",
			PassageCount: i,
			LatencyMS:    100 * i,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := client.GetQueryHistory(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "third", records[0].ID)
	assert.Equal(t, "first", records[2].ID)
	assert.Equal(t, "third question", records[0].Question)
	assert.Equal(t, 2, records[0].PassageCount)
}

func TestQueryHistoryLimit(t *testing.T) {
	client := newTestClient(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.InsertQueryRecord(&models.QueryRecord{
			ID:        string(rune('a' + i)),
			Question:  "q",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := client.GetQueryHistory(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestInsertFeedback(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.InsertQueryRecord(&models.QueryRecord{
		ID: "q1", Question: "question", CreatedAt: time.Now(),
	}))

	err := client.InsertFeedback(&models.Feedback{
		QueryID:   "q1",
		Helpful:   true,
		Comment:   "useful",
		CreatedAt: time.Now(),
	})
	assert.NoError(t, err)
}

func TestDuplicateQueryID(t *testing.T) {
	client := newTestClient(t)

	record := &models.QueryRecord{ID: "dup", Question: "q", CreatedAt: time.Now()}
	require.NoError(t, client.InsertQueryRecord(record))
	assert.Error(t, client.InsertQueryRecord(record))
}
