package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONL(t *testing.T) {
	input := `{"account":"a","id":1,"date":"2024-01-01 00:00:00","text":"one"}
{"account":"a","id":2,"date":"2024-01-01 00:01:00","text":"two","text_english":"two","geolocs":[],"coordinates":[],"negative":0,"neutral":1,"positive":0}
`

	msgs, err := DecodeJSONL(strings.NewReader(input), "test")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.False(t, msgs[0].IsEnriched())
	assert.True(t, msgs[1].IsEnriched())
	assert.EqualValues(t, 2, msgs[1].ID)
}

func TestDecodeJSONLSkipsPartialTail(t *testing.T) {
	// A writer mid-append leaves a truncated final line; readers must
	// keep every complete record.
	input := `{"account":"a","id":1,"date":"2024-01-01 00:00:00","text":"one"}
{"account":"a","id":2,"date":"2024-01-01 00:01:00","te`

	msgs, err := DecodeJSONL(strings.NewReader(input), "test")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.EqualValues(t, 1, msgs[0].ID)
}

func TestDecodeJSONLSkipsBlankLines(t *testing.T) {
	input := "\n{\"account\":\"a\",\"id\":1,\"date\":\"2024-01-01 00:00:00\",\"text\":\"one\"}\n\n"

	msgs, err := DecodeJSONL(strings.NewReader(input), "test")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestDecodeJSONLEmpty(t *testing.T) {
	msgs, err := DecodeJSONL(strings.NewReader(""), "test")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
